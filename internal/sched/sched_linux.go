//go:build linux

package sched

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// raise switches the calling thread to SCHED_FIFO at maximum priority and
// returns a function reverting it to SCHED_NORMAL at priority 0.
func raise() (func() error, error) {
	prio, _, errno := unix.Syscall(unix.SYS_SCHED_GET_PRIORITY_MAX, unix.SCHED_FIFO, 0, 0)
	if errno != 0 {
		return nil, fmt.Errorf("sched_get_priority_max: %w", errno)
	}

	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(prio),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return nil, fmt.Errorf("set SCHED_FIFO priority %d: %w", prio, err)
	}

	return func() error {
		attr := unix.SchedAttr{
			Size:   unix.SizeofSchedAttr,
			Policy: unix.SCHED_NORMAL,
		}
		if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
			return fmt.Errorf("set SCHED_NORMAL: %w", err)
		}
		return nil
	}, nil
}
