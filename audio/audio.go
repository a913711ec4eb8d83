// Package audio abstracts the platform capture layer. Backends deliver
// signed 16-bit little-endian mono blocks to a callback running on a
// driver-owned thread; the callback must copy the data before returning.
package audio

// DataCallback receives one block of S16LE samples. The slice is owned by
// the driver and is reused after the callback returns.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32

	// BlockFrames is the preferred delivery granularity in frames per
	// callback. Zero leaves the backend's default; backends treat it as
	// a hint, not a guarantee.
	BlockFrames uint32
}

// Device is an immutable snapshot from enumeration.
type Device struct {
	ID         string // opaque platform-specific identifier
	Name       string
	Channels   int
	SampleRate int
	IsDefault  bool
	IsLoopback bool
}

type Context interface {
	Devices() ([]Device, error)
	NewCapture(device *Device, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
