package worker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"meetcap/encoder"
	"meetcap/transcriber"
)

// CLIEngine shells out to a whisper.cpp-style command-line transcriber.
// The model itself stays a black box behind the binary; this engine only
// owns the invocation and the parsing of its JSON output.
type CLIEngine struct {
	Binary    string // e.g. "whisper-cli"
	ModelPath string // GGML model file; empty lets the binary use its default
	Language  string
}

// whisperOutput is the subset of whisper.cpp's -oj JSON this engine
// consumes. Offsets are milliseconds from the start of the audio.
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (e *CLIEngine) Transcribe(audioPath string, progress func(string)) (EngineResult, error) {
	outPrefix := filepath.Join(os.TempDir(), "meetcap_whisper_"+uuid.NewString())
	jsonPath := outPrefix + ".json"
	defer os.Remove(jsonPath)

	args := []string{"-f", audioPath, "-oj", "-of", outPrefix}
	if e.ModelPath != "" {
		args = append(args, "-m", e.ModelPath)
	}
	if e.Language != "" {
		args = append(args, "-l", e.Language)
	}

	cmd := exec.Command(e.Binary, args...)

	// The binary interleaves status and transcript lines on both streams;
	// forward all of it as progress.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return EngineResult{}, fmt.Errorf("launching %s: %w", e.Binary, err)
	}

	lines := make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if progress != nil {
				progress(scanner.Text())
			}
		}
	}()

	runErr := cmd.Wait()
	pw.Close()
	<-lines
	if runErr != nil {
		return EngineResult{}, fmt.Errorf("%s failed: %w", e.Binary, runErr)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return EngineResult{}, fmt.Errorf("reading %s output: %w", e.Binary, err)
	}
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return EngineResult{}, fmt.Errorf("parsing %s output: %w", e.Binary, err)
	}

	res := EngineResult{Language: out.Result.Language}
	for _, t := range out.Transcription {
		res.Segments = append(res.Segments, transcriber.Segment{
			Start: float64(t.Offsets.From) / 1000.0,
			End:   float64(t.Offsets.To) / 1000.0,
			Text:  t.Text,
		})
	}

	// Prefer the container's duration; fall back to the last segment end
	// for non-WAV input.
	if dur, err := encoder.WAVDuration(audioPath); err == nil {
		res.Duration = dur
	} else if n := len(res.Segments); n > 0 {
		res.Duration = res.Segments[n-1].End
	}

	return res, nil
}
