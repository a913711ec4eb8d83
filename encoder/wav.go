package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// HeaderSize is the size of the canonical PCM WAV header.
const HeaderSize = 44

// WAVEncoder accumulates S16LE mono PCM and emits a RIFF/WAVE file image.
// The header is patched with the final sizes on Close.
type WAVEncoder struct {
	buf         bytes.Buffer
	totalFrames uint64
	closed      bool
}

func NewWAV() *WAVEncoder {
	e := &WAVEncoder{}
	e.buf.Write(make([]byte, HeaderSize)) // placeholder, patched on Close
	return e
}

func (e *WAVEncoder) EncodeBlock(block []int16) error {
	if e.closed {
		return fmt.Errorf("wav encoder is closed")
	}
	raw := make([]byte, len(block)*2)
	for i, s := range block {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	e.buf.Write(raw)
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WAVEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	b := e.buf.Bytes()
	dataSize := uint32(len(b) - HeaderSize)
	byteRate := uint32(SampleRate * Channels * BitsPerSample / 8)
	blockAlign := uint16(Channels * BitsPerSample / 8)

	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], 36+dataSize)
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(b[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(b[22:24], Channels)
	binary.LittleEndian.PutUint32(b[24:28], SampleRate)
	binary.LittleEndian.PutUint32(b[28:32], byteRate)
	binary.LittleEndian.PutUint16(b[32:34], blockAlign)
	binary.LittleEndian.PutUint16(b[34:36], BitsPerSample)
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], dataSize)
	return nil
}

func (e *WAVEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *WAVEncoder) TotalFrames() uint64 {
	return e.totalFrames
}

// WAVDuration reads a PCM WAV header and reports the audio duration in
// seconds.
func WAVDuration(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if len(data) < HeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, fmt.Errorf("%s: not a WAV file", path)
	}
	channels := binary.LittleEndian.Uint16(data[22:24])
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(data[34:36])
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if channels == 0 || sampleRate == 0 || bitsPerSample == 0 {
		return 0, fmt.Errorf("%s: malformed WAV header", path)
	}
	bytesPerFrame := uint32(channels) * uint32(bitsPerSample) / 8
	frames := dataSize / bytesPerFrame
	return float64(frames) / float64(sampleRate), nil
}
