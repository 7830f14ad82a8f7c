//go:build !linux

package sched

import "errors"

func raise() (func() error, error) {
	return nil, errors.New("real-time scheduling not supported on this platform")
}
