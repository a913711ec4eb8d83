package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Setenv("WHISPER_MODEL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if cfg.BlockMs != 500 {
		t.Errorf("block_ms default = %d, want 500", cfg.BlockMs)
	}
	if cfg.Model != "base" {
		t.Errorf("model = %q, want base", cfg.Model)
	}
	if cfg.Mode != "mixed" {
		t.Errorf("mode = %q, want mixed", cfg.Mode)
	}
	if cfg.SystemWeight != 0.6 || cfg.MicWeight != 0.4 {
		t.Errorf("weights = %v/%v, want 0.6/0.4", cfg.SystemWeight, cfg.MicWeight)
	}
	if !cfg.AutoDeleteAudio {
		t.Error("auto delete should default on")
	}
	if cfg.WorkerTimeout != 10*time.Minute {
		t.Errorf("worker timeout = %v, want 10m", cfg.WorkerTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("WHISPER_MODEL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	content := `
[audio]
mode = system
block_ms = 250

[mix]
system_weight = 0.7
mic_weight = 0.3

[storage]
data_dir = ` + dir + `
format = flac
auto_delete_audio = false

[whisper]
model = small
language = de
worker_timeout = 2m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "system" {
		t.Errorf("mode = %q, want system", cfg.Mode)
	}
	if cfg.BlockMs != 250 {
		t.Errorf("block_ms = %d, want 250", cfg.BlockMs)
	}
	if cfg.SystemWeight != 0.7 || cfg.MicWeight != 0.3 {
		t.Errorf("weights = %v/%v, want 0.7/0.3", cfg.SystemWeight, cfg.MicWeight)
	}
	if cfg.Format != "flac" {
		t.Errorf("format = %q, want flac", cfg.Format)
	}
	if cfg.AutoDeleteAudio {
		t.Error("auto delete should be off")
	}
	if cfg.Model != "small" || cfg.Language != "de" {
		t.Errorf("whisper = %q/%q, want small/de", cfg.Model, cfg.Language)
	}
	if cfg.WorkerTimeout != 2*time.Minute {
		t.Errorf("worker timeout = %v, want 2m", cfg.WorkerTimeout)
	}
	if cfg.RecordingsDir != filepath.Join(dir, "recordings") {
		t.Errorf("recordings dir = %q", cfg.RecordingsDir)
	}
}

func TestInvalidModeFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte("[audio]\nmode = telepathy\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "mixed" {
		t.Errorf("mode = %q, want fallback mixed", cfg.Mode)
	}
}

func TestEnvModelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte("[whisper]\nmodel = small\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WHISPER_MODEL", "large-v3")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "large-v3" {
		t.Errorf("model = %q, want env override large-v3", cfg.Model)
	}
}

func TestEnsureDirs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	cfg := Default()
	cfg.DataDir = dir
	cfg.RecordingsDir = filepath.Join(dir, "recordings")
	cfg.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, d := range []string{dir, cfg.RecordingsDir, cfg.LogDir} {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Errorf("%s not created", d)
		}
	}
}
