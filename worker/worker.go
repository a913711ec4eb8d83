// Package worker implements the transcription side of the process
// contract: invoked as `meetcap-worker <audio_path> <result_path>`, it
// drives a local speech engine, reports progress on stderr, and writes
// exactly one result record. It runs in its own process so the engine's
// native dependencies cannot destabilize the capture process.
package worker

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"meetcap/transcriber"
)

// noSpeechMinChars is the guard below which a transcript is declared
// no-speech rather than returned: short fragments at this length are
// model hallucinations on silence, not content.
const noSpeechMinChars = 20

// EngineResult is what a speech engine produces for one audio file.
type EngineResult struct {
	Segments []transcriber.Segment
	Language string
	Duration float64
}

// Engine is the speech model black box. Implementations emit optional
// progress lines through the callback.
type Engine interface {
	Transcribe(audioPath string, progress func(line string)) (EngineResult, error)
}

type privacyRecord struct {
	ProcessedLocally bool   `json:"processed_locally"`
	DataSentToServer bool   `json:"data_sent_to_server"`
	Model            string `json:"model"`
}

type record struct {
	Error         string                `json:"error,omitempty"`
	Trace         string                `json:"traceback,omitempty"`
	NoSpeech      *bool                 `json:"no_speech,omitempty"`
	FullText      string                `json:"full_text,omitempty"`
	Segments      []transcriber.Segment `json:"segments,omitempty"`
	Language      string                `json:"language,omitempty"`
	Duration      float64               `json:"duration,omitempty"`
	TranscribedAt string                `json:"transcribed_at,omitempty"`
	AudioFile     string                `json:"audio_file,omitempty"`
	Privacy       *privacyRecord        `json:"privacy,omitempty"`
}

// Run executes one transcription request and returns the process exit
// code: 0 whenever a result record was written (success, no-speech, or a
// caught engine error), non-zero only when no result could be written at
// all.
func Run(eng Engine, modelSize, audioPath, resultPath string, stderr io.Writer) int {
	progress := func(line string) {
		fmt.Fprintln(stderr, line)
	}

	if _, err := os.Stat(audioPath); err != nil {
		return writeRecord(resultPath, record{
			Error: fmt.Sprintf("audio file not found: %s", audioPath),
		}, stderr)
	}

	progress(fmt.Sprintf("Loading model (%s)...", modelSize))

	res, err := eng.Transcribe(audioPath, progress)
	if err != nil {
		return writeRecord(resultPath, record{
			Error: err.Error(),
			Trace: fmt.Sprintf("engine: %+v", err),
		}, stderr)
	}

	parts := make([]string, 0, len(res.Segments))
	for _, seg := range res.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		progress(fmt.Sprintf("  [%.1fs] %s", seg.End, clip(text, 60)))
	}
	fullText := strings.Join(parts, " ")

	if utf8.RuneCountInString(strings.TrimSpace(fullText)) < noSpeechMinChars {
		noSpeech := true
		return writeRecord(resultPath, record{NoSpeech: &noSpeech}, stderr)
	}

	noSpeech := false
	rec := record{
		NoSpeech:      &noSpeech,
		FullText:      fullText,
		Segments:      trimmedSegments(res.Segments),
		Language:      res.Language,
		Duration:      res.Duration,
		TranscribedAt: time.Now().Format(time.RFC3339),
		AudioFile:     filepath.Base(audioPath),
		Privacy: &privacyRecord{
			ProcessedLocally: true,
			DataSentToServer: false,
			Model:            "whisper-" + modelSize,
		},
	}
	code := writeRecord(resultPath, rec, stderr)
	progress("Done.")
	return code
}

func trimmedSegments(segments []transcriber.Segment) []transcriber.Segment {
	out := make([]transcriber.Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// writeRecord is the single exit gate: it persists the record and decides
// the exit code. A write failure is the one condition that prevents any
// result, hence the only non-zero path.
func writeRecord(resultPath string, rec record, stderr io.Writer) int {
	data, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(stderr, "encoding result: %v\n", err)
		return 1
	}
	if err := os.WriteFile(resultPath, data, 0o644); err != nil {
		fmt.Fprintf(stderr, "writing result file: %v\n", err)
		return 1
	}
	return 0
}

// clip truncates to n characters on a rune boundary; progress lines stay
// valid UTF-8 whatever the model emits.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
