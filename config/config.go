// Package config loads settings from ~/.meetcap/config.ini with sane
// defaults for every key, so a missing file is a valid configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
)

const (
	DefaultModel         = "base" // tiny, base, small, medium, large-v3
	DefaultLanguage      = "en"
	DefaultBlockMs       = 500
	DefaultFormat        = "wav"
	DefaultMode          = "mixed" // system, mic, mixed
	DefaultWorkerTimeout = 10 * time.Minute
	DefaultSystemWeight  = 0.6
	DefaultMicWeight     = 0.4
)

type Config struct {
	DataDir       string
	RecordingsDir string
	LogDir        string

	// The pipeline format itself (16 kHz mono S16) is fixed by the worker
	// contract and not configurable; only the delivery granularity is.
	BlockMs int
	Mode    string

	SystemWeight float64
	MicWeight    float64

	Format          string
	AutoDeleteAudio bool
	RetentionHours  int

	Model         string
	Language      string
	WorkerPath    string
	WorkerTimeout time.Duration

	// Worker-side engine settings.
	WhisperBin   string
	WhisperModel string // path to the model file for the engine binary
}

func defaultDataDir() string {
	if dir := os.Getenv("MEETCAP_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".meetcap"
	}
	return filepath.Join(home, ".meetcap")
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		DataDir:         dataDir,
		RecordingsDir:   filepath.Join(dataDir, "recordings"),
		LogDir:          filepath.Join(dataDir, "logs"),
		BlockMs:         DefaultBlockMs,
		Mode:            DefaultMode,
		SystemWeight:    DefaultSystemWeight,
		MicWeight:       DefaultMicWeight,
		Format:          DefaultFormat,
		AutoDeleteAudio: true,
		RetentionHours:  0, // delete immediately after transcription
		Model:           DefaultModel,
		Language:        DefaultLanguage,
		WorkerTimeout:   DefaultWorkerTimeout,
		WhisperBin:      "whisper-cli",
	}
}

// Load reads the ini file at path, falling back to Default for every
// missing key. An empty path loads <data dir>/config.ini. The WHISPER_MODEL
// environment variable overrides the configured model size.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.ini")
	}

	f, err := ini.LooseLoad(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	audio := f.Section("audio")
	cfg.BlockMs = audio.Key("block_ms").MustInt(cfg.BlockMs)
	cfg.Mode = audio.Key("mode").In(cfg.Mode, []string{"system", "mic", "mixed"})

	mix := f.Section("mix")
	cfg.SystemWeight = mix.Key("system_weight").MustFloat64(cfg.SystemWeight)
	cfg.MicWeight = mix.Key("mic_weight").MustFloat64(cfg.MicWeight)

	storage := f.Section("storage")
	if dir := storage.Key("data_dir").String(); dir != "" {
		cfg.DataDir = dir
		cfg.RecordingsDir = filepath.Join(dir, "recordings")
		cfg.LogDir = filepath.Join(dir, "logs")
	}
	if dir := storage.Key("recordings_dir").String(); dir != "" {
		cfg.RecordingsDir = dir
	}
	cfg.Format = storage.Key("format").In(cfg.Format, []string{"wav", "flac"})
	cfg.AutoDeleteAudio = storage.Key("auto_delete_audio").MustBool(cfg.AutoDeleteAudio)
	cfg.RetentionHours = storage.Key("retention_hours").MustInt(cfg.RetentionHours)

	whisper := f.Section("whisper")
	cfg.Model = whisper.Key("model").MustString(cfg.Model)
	cfg.Language = whisper.Key("language").MustString(cfg.Language)
	cfg.WorkerPath = whisper.Key("worker_path").String()
	cfg.WorkerTimeout = whisper.Key("worker_timeout").MustDuration(cfg.WorkerTimeout)
	cfg.WhisperBin = whisper.Key("binary").MustString(cfg.WhisperBin)
	cfg.WhisperModel = whisper.Key("model_path").String()

	if model := os.Getenv("WHISPER_MODEL"); model != "" {
		cfg.Model = model
	}

	return cfg, nil
}

// EnsureDirs creates the data, recordings and log directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.RecordingsDir, c.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// ResolveWorker returns the transcription worker binary to launch: the
// configured path if set, otherwise meetcap-worker next to the running
// executable, falling back to PATH lookup by name.
func (c *Config) ResolveWorker() string {
	if c.WorkerPath != "" {
		return c.WorkerPath
	}
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), "meetcap-worker")
		if _, err := os.Stat(sibling); err == nil {
			return sibling
		}
	}
	return "meetcap-worker"
}
