// Package app wires the pipeline together behind the surface a UI or
// local bridge consumes: start/stop recording, live meters, device
// listing, and transcription.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meetcap/audio"
	"meetcap/capture"
	"meetcap/config"
	"meetcap/log"
	"meetcap/store"
	"meetcap/transcriber"
)

// ErrNoAudio reports a stop that produced nothing worth keeping.
var ErrNoAudio = capture.ErrEmptyRecording

type App struct {
	cfg *config.Config
	ctx audio.Context
	tr  transcriber.Transcriber

	mu  sync.Mutex
	rec *capture.Recorder
}

// New builds the pipeline from configuration. The transcriber is injected
// so callers can swap the worker broker for a fake.
func New(cfg *config.Config, ctx audio.Context, tr transcriber.Transcriber) (*App, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	mode, err := capture.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	sink, err := store.New(cfg.RecordingsDir, cfg.Format)
	if err != nil {
		return nil, err
	}

	rec := capture.NewRecorder(ctx, sink, mode, nil)
	rec.SystemWeight = cfg.SystemWeight
	rec.MicWeight = cfg.MicWeight
	rec.Block = time.Duration(cfg.BlockMs) * time.Millisecond

	return &App{cfg: cfg, ctx: ctx, tr: tr, rec: rec}, nil
}

// NewWithBroker builds the pipeline with the worker-process broker as its
// transcriber.
func NewWithBroker(cfg *config.Config, ctx audio.Context) (*App, error) {
	broker := transcriber.NewBroker(cfg.ResolveWorker(), cfg.Model, cfg.WorkerTimeout, cfg.AutoDeleteAudio)
	return New(cfg, ctx, broker)
}

// StartRecording begins capture. An empty deviceID keeps the configured
// mode's default resolution (loopback heuristic for system capture,
// platform default for the microphone).
func (a *App) StartRecording(deviceID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var device *audio.Device
	if deviceID != "" {
		var err error
		device, err = audio.FindByID(a.ctx, deviceID)
		if err != nil {
			return fmt.Errorf("resolving device %q: %w", deviceID, err)
		}
		if device == nil {
			return fmt.Errorf("no such input device: %q", deviceID)
		}
	}

	if err := a.rec.Start(device); err != nil {
		log.Errorf("start recording: %v", err)
		return err
	}
	log.Infof("recording started (%s)", a.cfg.Mode)
	return nil
}

// StopRecording halts capture and returns the saved file path. A session
// that captured no audio returns ErrNoAudio and writes nothing.
func (a *App) StopRecording() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.Stop()
}

// Duration reports seconds recorded so far, 0 when idle.
func (a *App) Duration() float64 {
	return a.rec.Duration()
}

// Level reports the instantaneous input level in [0,1].
func (a *App) Level() float64 {
	return a.rec.Level()
}

// Recording reports whether a capture is in progress.
func (a *App) Recording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.Active()
}

// ListDevices enumerates input-capable devices with loopback candidates
// marked.
func (a *App) ListDevices() ([]audio.Device, error) {
	return audio.ListInputDevices(a.ctx)
}

// Transcribe runs one transcription request to completion. It blocks for
// the worker's lifetime and must be called off any UI goroutine. The
// result is returned as-is; retrying a failure is the caller's decision.
func (a *App) Transcribe(ctx context.Context, audioPath string, onProgress transcriber.ProgressFunc) transcriber.Result {
	begin := time.Now()
	res := a.tr.Transcribe(ctx, audioPath, onProgress)
	log.TranscriptionOutcome(res.Outcome.String(), a.cfg.Model, res.Duration, float64(time.Since(begin).Milliseconds()))
	if res.Outcome == transcriber.Success {
		log.TranscriptText(res.FullText)
	}
	return res
}

// PruneRecordings applies the retention policy to recordings that never
// made it through transcription.
func (a *App) PruneRecordings() (int, error) {
	sink, err := store.New(a.cfg.RecordingsDir, a.cfg.Format)
	if err != nil {
		return 0, err
	}
	if a.cfg.RetentionHours <= 0 {
		return 0, nil // immediate deletion is handled by the broker
	}
	return sink.Prune(time.Duration(a.cfg.RetentionHours) * time.Hour)
}
