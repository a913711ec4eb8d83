package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, name := range []string{"diagnostics_log.txt", "transcribe_log.txt"} {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestDiagnosticsWritten(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("pipeline ready")
	Warnf("mic stream failed: %s", "device busy")
	RecordingSaved("/tmp/meeting.wav", 3.5, 112044)
	TranscriptionOutcome("success", "base", 3.5, 2100)
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"pipeline ready", "mic stream failed", "recording_saved", "transcription", "outcome=success"} {
		if !strings.Contains(content, want) {
			t.Errorf("diagnostics log missing %q", want)
		}
	}
}

func TestTranscriptText(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	TranscriptText("hello world")
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "transcribe_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello world") {
		t.Error("transcript log missing text")
	}
	if !strings.Contains(string(data), "\t") {
		t.Error("transcript log should be tab-separated")
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	setupLogDir(t)
	// Must not panic or create files.
	Info("dropped")
	TranscriptText("dropped")
}
