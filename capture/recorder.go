package capture

import (
	"fmt"
	"sync"
	"time"

	"meetcap/audio"
	"meetcap/log"
	"meetcap/store"
)

// Mode selects which streams a Recorder opens.
type Mode int

const (
	// SystemOnly captures the loopback device (other participants).
	SystemOnly Mode = iota
	// MicrophoneOnly captures the default input (the local speaker).
	MicrophoneOnly
	// Mixed captures both and mixes them at stop time.
	Mixed
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "system":
		return SystemOnly, nil
	case "mic":
		return MicrophoneOnly, nil
	case "mixed":
		return Mixed, nil
	}
	return 0, fmt.Errorf("unknown capture mode: %q", s)
}

func (m Mode) String() string {
	switch m {
	case SystemOnly:
		return "system"
	case MicrophoneOnly:
		return "mic"
	case Mixed:
		return "mixed"
	}
	return "unknown"
}

// Mix weights. System audio dominates because it typically carries several
// remote participants while the microphone carries one local speaker.
const (
	DefaultSystemWeight = 0.6
	DefaultMicWeight    = 0.4
)

// Recorder composes up to two Sessions per its Mode and persists the mixed
// result through a store. The system stream is the primary signal of
// record: in Mixed mode a microphone failure degrades to system-only
// capture with a warning, never an abort. Start, Stop and Active are safe
// for concurrent use; the exported fields must be set before Start.
type Recorder struct {
	ctx   audio.Context
	sink  *store.Store
	mode  Mode
	onSys ChunkListener

	SystemWeight float64
	MicWeight    float64

	// Block overrides the sessions' delivery granularity. Zero keeps
	// BlockDuration.
	Block time.Duration

	mu      sync.Mutex
	primary *Session // system stream (or the mic stream in MicrophoneOnly)
	mic     *Session // secondary mic stream, Mixed mode only
	started time.Time
	active  bool
}

func NewRecorder(ctx audio.Context, sink *store.Store, mode Mode, onChunk ChunkListener) *Recorder {
	r := &Recorder{
		ctx:          ctx,
		sink:         sink,
		mode:         mode,
		onSys:        onChunk,
		SystemWeight: DefaultSystemWeight,
		MicWeight:    DefaultMicWeight,
	}
	r.primary = NewSession(ctx, onChunk)
	if mode == Mixed {
		r.mic = NewSession(ctx, nil)
	}
	return r
}

// Start opens the streams for the configured mode. The device argument
// overrides resolution for the primary stream; nil means loopback-then-
// default for system capture and platform default for the microphone.
func (r *Recorder) Start(device *audio.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return ErrAlreadyActive
	}

	r.primary.Block = r.Block
	if r.mic != nil {
		r.mic.Block = r.Block
	}

	primaryDev := device
	if r.mode == MicrophoneOnly && device == nil {
		// The loopback heuristic must not hijack a microphone recording;
		// resolve the default input explicitly.
		primaryDev = defaultInput(r.ctx)
	}

	if err := r.primary.Start(primaryDev); err != nil {
		return err
	}

	if r.mode == Mixed {
		// Microphone failure must not invalidate the system session.
		if err := r.mic.Start(defaultInput(r.ctx)); err != nil {
			log.RecordingDegraded(fmt.Sprintf("microphone stream failed, system audio only: %v", err))
			r.mic = nil
		}
	}

	r.started = time.Now()
	r.active = true
	return nil
}

// defaultInput picks the platform default microphone, preferring a device
// flagged default and skipping loopback candidates.
func defaultInput(ctx audio.Context) *audio.Device {
	devices, err := audio.ListInputDevices(ctx)
	if err != nil {
		return nil
	}
	for i := range devices {
		if devices[i].IsDefault && !devices[i].IsLoopback {
			return &devices[i]
		}
	}
	for i := range devices {
		if !devices[i].IsLoopback {
			return &devices[i]
		}
	}
	return nil
}

// Stop halts all streams, mixes the captured buffers and saves one file
// named by the recording's start time. Either stream failing to produce
// audio is tolerated as long as the other did.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return "", ErrNotRecording
	}
	r.active = false

	system, sysErr := r.primary.Stop()
	if sysErr != nil && sysErr != ErrEmptyRecording {
		log.Warnf("stopping system stream: %v", sysErr)
	}

	var mic []int16
	if r.mic != nil {
		var micErr error
		mic, micErr = r.mic.Stop()
		if micErr != nil && micErr != ErrEmptyRecording {
			log.Warnf("stopping mic stream: %v", micErr)
		}
	} else if r.mode == Mixed {
		r.mic = NewSession(r.ctx, nil) // restore for the next Start
	}

	mixed := MixWeighted(system, mic, r.SystemWeight, r.MicWeight)
	if len(mixed) == 0 {
		return "", ErrEmptyRecording
	}

	path, err := r.sink.Save(mixed, r.started)
	if err != nil {
		// The buffers are gone; the recording is lost, not retryable.
		return "", fmt.Errorf("recording lost: %w", err)
	}
	log.RecordingSaved(path, float64(len(mixed))/SampleRate, len(mixed)*2)
	return path, nil
}

// Duration returns seconds since Start, 0 when not recording. The
// primary session is never reassigned and carries its own lock, so this
// is safe alongside Start and Stop.
func (r *Recorder) Duration() float64 {
	return r.primary.Duration()
}

// Level reports the primary stream's instantaneous level in [0,1].
func (r *Recorder) Level() float64 {
	return r.primary.Level()
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Mix combines two buffers with the default weights, truncated to the
// shorter length. A single present side passes through unmixed. There is
// no shared sample clock between two hardware streams, so truncation to
// the overlap region beats padding with silence.
func Mix(a, b []int16) []int16 {
	return MixWeighted(a, b, DefaultSystemWeight, DefaultMicWeight)
}

func MixWeighted(a, b []int16, wa, wb float64) []int16 {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	n := min(len(a), len(b))
	out := make([]int16, n)
	for i := range out {
		v := int32(float64(a[i])*wa + float64(b[i])*wb)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
