// Package transcriber runs the speech model in an isolated worker process
// and classifies its outcome. The process boundary is deliberate: the
// model's native dependencies must not be able to take down the capture
// process, so the exchange happens over a result file plus a line-oriented
// progress stream, never in-process calls.
package transcriber

import "context"

// Outcome tags a transcription result. NoSpeech is a sentinel distinct
// from both success and failure and needs its own handling branch.
type Outcome int

const (
	Success Outcome = iota
	NoSpeech
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NoSpeech:
		return "no_speech"
	case Failed:
		return "failure"
	}
	return "unknown"
}

type Segment struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the broker's classification of one worker run. Exactly one of
// the three outcomes holds: Success carries the transcript fields, Failed
// carries Err (and possibly Trace), NoSpeech carries nothing further.
type Result struct {
	Outcome  Outcome
	FullText string
	Segments []Segment
	Language string
	Duration float64 // seconds of audio

	Err   string // failure message, preserved verbatim for diagnostics
	Trace string // optional diagnostic trace from the worker
}

func failure(msg string) Result {
	return Result{Outcome: Failed, Err: msg}
}

// ProgressFunc receives each progress line the worker emits. Lines are
// opaque human-readable messages; they are best-effort feedback and never
// required for correctness.
type ProgressFunc func(line string)

// Transcriber turns a recorded audio file into a Result. Implementations
// must not retry internally: one request yields one outcome, and retrying
// is the caller's decision.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, onProgress ProgressFunc) Result
}
