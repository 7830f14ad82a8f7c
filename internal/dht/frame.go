package dht

// FrameSize is the number of bytes the sensor sends per exchange.
const FrameSize = 5

// Frame is the raw data of one exchange: humidity high, humidity low,
// temperature high, temperature low, checksum.
type Frame [FrameSize]byte

// Payload returns the four data bytes.
func (f Frame) Payload() [4]byte {
	return [4]byte{f[0], f[1], f[2], f[3]}
}

// Checksum returns the 8-bit truncated sum of the payload bytes.
func (f Frame) Checksum() byte {
	return f[0] + f[1] + f[2] + f[3]
}

// Valid reports whether the transmitted checksum matches the payload.
func (f Frame) Valid() bool {
	return f.Checksum() == f[4]
}
