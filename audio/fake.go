package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
	fakeSampleRate    = 16000
)

// FakeContext replays canned PCM through the CaptureDevice interface so the
// capture path can be exercised without a sound card.
type FakeContext struct {
	Devs       []Device
	DevicesErr error
	OpenErr    error
	OpenErrFor map[string]error // per-device open failures
	PCM        []byte
	Realtime   bool
}

func (f *FakeContext) Devices() ([]Device, error) {
	if f.DevicesErr != nil {
		return nil, f.DevicesErr
	}
	return f.Devs, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(device *Device, config CaptureConfig) (CaptureDevice, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	if device != nil {
		if err := f.OpenErrFor[device.ID]; err != nil {
			return nil, err
		}
	}
	return &FakeCapture{
		pcm:         f.PCM,
		realtime:    f.Realtime,
		device:      device,
		blockFrames: int(config.BlockFrames),
	}, nil
}

// FakeCapture feeds its PCM to the callback in the requested block size
// and then goes quiet. With Realtime set it paces chunks at the nominal
// sample rate, otherwise everything is delivered as fast as the callback
// accepts it.
type FakeCapture struct {
	pcm         []byte
	realtime    bool
	device      *Device
	blockFrames int
	callback    atomic.Pointer[DataCallback]

	mu       sync.Mutex
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.callback.Store(&cb)
}

func (f *FakeCapture) ClearCallback() {
	f.callback.Store(nil)
}

func (f *FakeCapture) DeviceName() string {
	if f.device != nil {
		return f.device.Name
	}
	return "fake"
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	frames := f.blockFrames
	if frames <= 0 {
		frames = fakeFrameSize
	}
	chunkBytes := frames * fakeBytesPerFrame

	if !f.realtime {
		cb := f.callback.Load()
		if cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(*cb, pos, chunkBytes)
			}
		}
		close(f.feedDone)
		return nil
	}

	interval := time.Duration(frames) * time.Second / time.Duration(fakeSampleRate)
	go func() {
		defer close(f.feedDone)
		pos := 0
		for pos < len(f.pcm) {
			select {
			case <-f.stopCh:
				return
			default:
			}

			cb := f.callback.Load()
			if cb == nil {
				time.Sleep(time.Millisecond)
				continue
			}
			pos = f.feedChunk(*cb, pos, chunkBytes)

			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {}
