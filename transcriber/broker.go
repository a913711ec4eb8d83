package transcriber

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"meetcap/log"
)

// modelEnv passes the model-size selection to the worker.
const modelEnv = "WHISPER_MODEL"

// Broker launches one worker process per recording and enforces the
// file-exchange contract: `worker <audio_path> <result_path>`, progress as
// UTF-8 lines on the worker's stderr, the result written once as JSON.
// Exit code zero means "a result file was written"; non-zero means nothing
// usable was produced.
type Broker struct {
	WorkerPath string
	Model      string
	Timeout    time.Duration // zero disables the deadline

	// AutoDelete removes the source audio after a Success or NoSpeech
	// outcome. Deletion is best-effort and never changes the result; a
	// Failed outcome always keeps the audio so the caller can retry.
	AutoDelete bool
}

func NewBroker(workerPath, model string, timeout time.Duration, autoDelete bool) *Broker {
	return &Broker{
		WorkerPath: workerPath,
		Model:      model,
		Timeout:    timeout,
		AutoDelete: autoDelete,
	}
}

// resultRecord is the wire format of the result file. no_speech is a
// pointer so a record that carries neither an error nor the sentinel can
// be told apart from an explicit no_speech=false.
type resultRecord struct {
	Error    string    `json:"error"`
	Trace    string    `json:"traceback"`
	NoSpeech *bool     `json:"no_speech"`
	FullText string    `json:"full_text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
}

// Transcribe blocks until the worker exits and classifies the outcome.
// It must run off any UI/event goroutine. Cancelling the context
// force-terminates the worker; the result file is cleaned up on every
// path.
func (b *Broker) Transcribe(ctx context.Context, audioPath string, onProgress ProgressFunc) Result {
	resultPath := filepath.Join(os.TempDir(), "meetcap_result_"+uuid.NewString()+".json")
	defer os.Remove(resultPath)

	cmd := exec.Command(b.WorkerPath, audioPath, resultPath)
	cmd.Env = append(os.Environ(), modelEnv+"="+b.Model)
	setProcessGroup(cmd)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return failure(fmt.Sprintf("allocating worker pipe: %v", err))
	}
	if err := cmd.Start(); err != nil {
		return failure(fmt.Sprintf("launching worker: %v", err))
	}

	// Stream progress until the worker closes its stderr. End-of-stream
	// only means "no more progress", not success or failure.
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onProgress != nil {
				onProgress(scanner.Text())
			}
		}
	}()

	waitErr, interrupted := b.wait(ctx, cmd, progressDone)
	if interrupted != "" {
		return failure(interrupted)
	}

	result := classify(waitErr, resultPath)
	if result.Outcome != Failed {
		b.deleteSource(audioPath)
	}
	return result
}

// wait blocks for process exit, enforcing the timeout and context. On
// either firing it kills the worker's process group and reports why; a
// hung model load must not hang the app with it.
func (b *Broker) wait(ctx context.Context, cmd *exec.Cmd, progressDone <-chan struct{}) (error, string) {
	waitCh := make(chan error, 1)
	go func() {
		<-progressDone // drain stderr before Wait closes the pipe
		waitCh <- cmd.Wait()
	}()

	var timeout <-chan time.Time
	if b.Timeout > 0 {
		timer := time.NewTimer(b.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-waitCh:
		return err, ""
	case <-ctx.Done():
		killWorker(cmd)
		reap(waitCh)
		return nil, "transcription cancelled"
	case <-timeout:
		killWorker(cmd)
		reap(waitCh)
		return nil, fmt.Sprintf("worker timed out after %s", b.Timeout)
	}
}

// reap collects the killed worker but gives up after a grace period: a
// process that escaped the kill (detached from the group, holding our
// stderr pipe) must not extend the deadline the caller was promised.
func reap(waitCh <-chan error) {
	select {
	case <-waitCh:
	case <-time.After(2 * time.Second):
	}
}

// classify maps {exit status, result file} to the three outcomes. The
// worker's own message is always preserved; the broker never substitutes
// a different outcome for a reported one.
func classify(waitErr error, resultPath string) Result {
	if waitErr != nil {
		return failure(fmt.Sprintf("worker crashed or aborted: %v", waitErr))
	}

	data, err := os.ReadFile(resultPath)
	if err != nil {
		return failure("worker exited cleanly but produced no result file")
	}

	var rec resultRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return failure(fmt.Sprintf("malformed result file: %v", err))
	}

	if rec.Error != "" {
		return Result{Outcome: Failed, Err: rec.Error, Trace: rec.Trace}
	}
	if rec.NoSpeech == nil {
		return failure("result file carries neither a transcript nor a sentinel")
	}
	if *rec.NoSpeech {
		return Result{Outcome: NoSpeech}
	}
	return Result{
		Outcome:  Success,
		FullText: rec.FullText,
		Segments: rec.Segments,
		Language: rec.Language,
		Duration: rec.Duration,
	}
}

func (b *Broker) deleteSource(audioPath string) {
	if !b.AutoDelete {
		return
	}
	if err := os.Remove(audioPath); err != nil {
		log.Warnf("deleting transcribed audio %s: %v", audioPath, err)
		return
	}
	log.Infof("deleted transcribed audio %s", audioPath)
}
