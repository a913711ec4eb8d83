// Package capture owns the real-time side of the pipeline: one Session per
// open input stream, and a Recorder that composes sessions per capture mode
// and mixes their buffers at stop time.
package capture

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"meetcap/audio"
)

const (
	SampleRate = 16000
	Channels   = 1

	// BlockDuration bounds callback overhead while keeping the level meter
	// near-real-time.
	BlockDuration = 500 * time.Millisecond

	// levelQueueDepth bounds the meter queue; the callback drops blocks
	// rather than block when the reader falls behind.
	levelQueueDepth = 8
)

var (
	ErrAlreadyActive  = fmt.Errorf("capture session already active")
	ErrNotRecording   = fmt.Errorf("no active recording")
	ErrEmptyRecording = fmt.Errorf("no audio captured")
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateOpening
	stateActive
	stateStopping
)

// ChunkListener receives each captured block. It runs on the capture thread
// and must return quickly without blocking.
type ChunkListener func(block []int16)

// Session owns one open capture stream. The driver callback copies each
// delivered block into the session's append-only buffer and a bounded level
// queue; everything shared with the controlling goroutine sits behind short
// critical sections so the capture thread is never stalled.
type Session struct {
	ctx     audio.Context
	onChunk ChunkListener

	// Block is the delivery granularity requested from the backend.
	// Zero falls back to BlockDuration. Set before Start.
	Block time.Duration

	mu      sync.Mutex
	state   sessionState
	dev     audio.CaptureDevice
	device  *audio.Device
	blocks  [][]int16
	started time.Time

	levelQ chan []int16
}

func NewSession(ctx audio.Context, onChunk ChunkListener) *Session {
	return &Session{
		ctx:     ctx,
		onChunk: onChunk,
		levelQ:  make(chan []int16, levelQueueDepth),
	}
}

// Start opens a stream on the given device and begins capturing. A nil
// device resolves to the loopback heuristic, falling back to the platform
// default input. On failure the session stays idle.
func (s *Session) Start(device *audio.Device) error {
	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.state = stateOpening
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		s.state = stateIdle
		s.mu.Unlock()
		return err
	}

	if device == nil {
		loopback, err := audio.FindLoopback(s.ctx)
		if err != nil {
			return fail(fmt.Errorf("enumerating devices: %w", err))
		}
		device = loopback // nil still means platform default
	}

	block := s.Block
	if block <= 0 {
		block = BlockDuration
	}
	cfg := audio.CaptureConfig{
		SampleRate:  SampleRate,
		Channels:    Channels,
		BlockFrames: uint32(block * SampleRate / time.Second),
	}
	dev, err := s.ctx.NewCapture(device, cfg)
	if err != nil {
		return fail(fmt.Errorf("opening capture device: %w", err))
	}

	// Arm the session before starting the device: drivers may deliver the
	// first blocks before Start returns.
	s.mu.Lock()
	s.dev = dev
	s.device = device
	s.blocks = nil
	s.started = time.Now()
	s.drainLevelLocked()
	s.state = stateActive
	s.mu.Unlock()

	dev.SetCallback(s.onBlock)
	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		dev.Close()
		s.mu.Lock()
		s.dev = nil
		s.device = nil
		s.blocks = nil
		s.drainLevelLocked()
		s.mu.Unlock()
		return fail(fmt.Errorf("starting capture: %w", err))
	}
	return nil
}

// onBlock runs on the driver's capture thread. The delivered buffer is
// reused after return, so the copy happens before anything else.
func (s *Session) onBlock(data []byte, frameCount uint32) {
	n := int(frameCount)
	if n*2 > len(data) {
		n = len(data) / 2
	}
	if n == 0 {
		return
	}
	block := make([]int16, n)
	for i := range block {
		block[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	s.mu.Lock()
	if s.state != stateActive {
		s.mu.Unlock()
		return
	}
	s.blocks = append(s.blocks, block)
	s.mu.Unlock()

	select {
	case s.levelQ <- block:
	default: // meter reader is behind, drop
	}

	if s.onChunk != nil {
		s.onChunk(block)
	}
}

// Stop closes the stream and returns the captured samples as one flat
// sequence. Stopping a session that captured nothing returns
// ErrEmptyRecording; stopping twice returns ErrNotRecording the second
// time.
func (s *Session) Stop() ([]int16, error) {
	s.mu.Lock()
	if s.state != stateActive {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	s.state = stateStopping
	dev := s.dev
	s.mu.Unlock()

	dev.Stop()
	dev.ClearCallback()
	dev.Close()

	s.mu.Lock()
	blocks := s.blocks
	s.blocks = nil
	s.dev = nil
	s.device = nil
	s.drainLevelLocked()
	s.state = stateIdle
	s.mu.Unlock()

	if len(blocks) == 0 {
		return nil, ErrEmptyRecording
	}

	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	flat := make([]int16, 0, total)
	for _, b := range blocks {
		flat = append(flat, b...)
	}
	return flat, nil
}

func (s *Session) drainLevelLocked() {
	for {
		select {
		case <-s.levelQ:
		default:
			return
		}
	}
}

// Active reports whether the session is capturing.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateActive
}

// DeviceName names the device the session is bound to, or "" when idle.
func (s *Session) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return ""
	}
	return s.dev.DeviceName()
}

// Duration returns seconds since the recording started, 0 when idle.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateActive {
		return 0
	}
	return time.Since(s.started).Seconds()
}

// Level drains at most one queued block and reports its mean absolute
// amplitude in [0,1]. It is a sampled instantaneous indicator, not a
// running average; an empty queue reads as 0.
func (s *Session) Level() float64 {
	select {
	case block := <-s.levelQ:
		if len(block) == 0 {
			return 0
		}
		var sum float64
		for _, v := range block {
			if v < 0 {
				sum -= float64(v)
			} else {
				sum += float64(v)
			}
		}
		return sum / float64(len(block)) / 32768.0
	default:
		return 0
	}
}
