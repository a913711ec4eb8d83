package capture

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"meetcap/audio"
)

// pcmOf builds n frames of S16LE mono at a constant amplitude.
func pcmOf(n int, amplitude int16) []byte {
	data := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(amplitude))
	}
	return data
}

func TestSessionCapturesAllSamples(t *testing.T) {
	const frames = 3 * SampleRate // simulated 3 seconds
	ctx := &audio.FakeContext{PCM: pcmOf(frames, 1234)}
	s := NewSession(ctx, nil)

	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Active() {
		t.Fatal("session should be active")
	}

	samples, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(samples) != frames {
		t.Fatalf("captured %d samples, want %d", len(samples), frames)
	}
	for i, v := range samples[:10] {
		if v != 1234 {
			t.Fatalf("sample %d = %d, want 1234", i, v)
		}
	}
	if s.Active() {
		t.Error("session should be idle after Stop")
	}
}

func TestSessionStopWithoutAudio(t *testing.T) {
	ctx := &audio.FakeContext{} // no PCM -> no callbacks
	s := NewSession(ctx, nil)
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Stop(); !errors.Is(err, ErrEmptyRecording) {
		t.Errorf("Stop = %v, want ErrEmptyRecording", err)
	}
}

func TestSessionDoubleStop(t *testing.T) {
	ctx := &audio.FakeContext{PCM: pcmOf(SampleRate, 10)}
	s := NewSession(ctx, nil)
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if _, err := s.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("second Stop = %v, want ErrNotRecording", err)
	}
}

func TestSessionStartWhileActive(t *testing.T) {
	ctx := &audio.FakeContext{PCM: pcmOf(100, 1)}
	s := NewSession(ctx, nil)
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if err := s.Start(nil); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Start = %v, want ErrAlreadyActive", err)
	}
}

func TestSessionOpenFailureLeavesIdle(t *testing.T) {
	ctx := &audio.FakeContext{OpenErr: errors.New("device busy")}
	s := NewSession(ctx, nil)
	if err := s.Start(nil); err == nil {
		t.Fatal("expected open error")
	}
	if s.Active() {
		t.Error("session should stay idle on open failure")
	}

	// The error must be recoverable: the same session starts once the
	// device frees up.
	ctx.OpenErr = nil
	ctx.PCM = pcmOf(100, 1)
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start after recovery: %v", err)
	}
	s.Stop()
}

func TestSessionLevel(t *testing.T) {
	// One exact block at amplitude 3277 (~0.1 of full scale).
	ctx := &audio.FakeContext{PCM: pcmOf(SampleRate/2, 3277)}
	s := NewSession(ctx, nil)
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	level := s.Level()
	if math.Abs(level-3277.0/32768.0) > 1e-6 {
		t.Errorf("level = %v, want ~0.1", level)
	}
	// Queue drained: the indicator reads 0 until the next block arrives.
	if level := s.Level(); level != 0 {
		t.Errorf("drained level = %v, want 0", level)
	}
}

func TestSessionDuration(t *testing.T) {
	ctx := &audio.FakeContext{PCM: pcmOf(100, 1)}
	s := NewSession(ctx, nil)
	if d := s.Duration(); d != 0 {
		t.Errorf("idle duration = %v, want 0", d)
	}
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if d := s.Duration(); d < 0.02 {
		t.Errorf("active duration = %v, want >= 0.02", d)
	}
	s.Stop()
	if d := s.Duration(); d != 0 {
		t.Errorf("stopped duration = %v, want 0", d)
	}
}

func TestSessionChunkListener(t *testing.T) {
	const frames = SampleRate / 2
	var mu sync.Mutex
	var received int
	listener := func(block []int16) {
		mu.Lock()
		received += len(block)
		mu.Unlock()
	}

	ctx := &audio.FakeContext{PCM: pcmOf(frames, 7)}
	s := NewSession(ctx, listener)
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received != frames {
		t.Errorf("listener received %d samples, want %d", received, frames)
	}
}

func TestSessionBlockGranularity(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	listener := func(block []int16) {
		mu.Lock()
		sizes = append(sizes, len(block))
		mu.Unlock()
	}

	t.Run("default 500ms", func(t *testing.T) {
		mu.Lock()
		sizes = nil
		mu.Unlock()

		ctx := &audio.FakeContext{PCM: pcmOf(3*SampleRate, 7)}
		s := NewSession(ctx, listener)
		if err := s.Start(nil); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := s.Stop(); err != nil {
			t.Fatalf("Stop: %v", err)
		}

		want := int(BlockDuration * SampleRate / time.Second)
		mu.Lock()
		defer mu.Unlock()
		if len(sizes) != 6 {
			t.Fatalf("got %d blocks, want 6", len(sizes))
		}
		for i, n := range sizes {
			if n != want {
				t.Errorf("block %d carries %d frames, want %d", i, n, want)
			}
		}
	})

	t.Run("custom block", func(t *testing.T) {
		mu.Lock()
		sizes = nil
		mu.Unlock()

		ctx := &audio.FakeContext{PCM: pcmOf(SampleRate, 7)}
		s := NewSession(ctx, listener)
		s.Block = 250 * time.Millisecond
		if err := s.Start(nil); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := s.Stop(); err != nil {
			t.Fatalf("Stop: %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(sizes) != 4 || sizes[0] != SampleRate/4 {
			t.Errorf("blocks = %v, want 4 of %d frames", sizes, SampleRate/4)
		}
	})
}

func TestSessionRealtimeFeed(t *testing.T) {
	// A paced feed must still deliver every sample by stop time.
	const frames = 4096
	ctx := &audio.FakeContext{PCM: pcmOf(frames, 55), Realtime: true}
	s := NewSession(ctx, nil)
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		var got int
		for _, b := range s.blocks {
			got += len(b)
		}
		s.mu.Unlock()
		if got >= frames {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	samples, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(samples) != frames {
		t.Errorf("captured %d samples, want %d", len(samples), frames)
	}
}
