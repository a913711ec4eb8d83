// Package encoder turns captured int16 sample blocks into an on-disk audio
// format. WAV is the canonical pipeline format; FLAC is an optional
// archive format for installations that keep recordings around.
package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// New returns an encoder for the named format ("wav" or "flac").
func New(format string) (Encoder, error) {
	switch format {
	case "wav":
		return NewWAV(), nil
	case "flac":
		return NewFLAC()
	default:
		return nil, fmt.Errorf("unknown recording format: %q", format)
	}
}

// Ext returns the file extension for a supported format.
func Ext(format string) string {
	return "." + format
}
