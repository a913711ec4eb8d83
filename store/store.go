// Package store persists finished recordings into the recordings
// directory and prunes the ones transcription no longer needs.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meetcap/encoder"
)

const filePrefix = "meeting_"

// Store writes recordings as meeting_YYYYMMDD_HHMMSS.<format> files.
// Two stops within the same wall-clock second overwrite each other; that
// collision is accepted and documented rather than disambiguated.
type Store struct {
	dir    string
	format string
}

func New(dir, format string) (*Store, error) {
	if _, err := encoder.New(format); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating recordings directory: %w", err)
	}
	return &Store{dir: dir, format: format}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save encodes the samples and writes one file named from the timestamp.
// A failed save means the recording is lost: the sample buffer is not
// retained anywhere after this call, so callers must surface the error
// rather than retry.
func (s *Store) Save(samples []int16, start time.Time) (string, error) {
	enc, err := encoder.New(s.format)
	if err != nil {
		return "", err
	}
	for i := 0; i < len(samples); i += encoder.BlockSize {
		end := min(i+encoder.BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return "", fmt.Errorf("encoding recording: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("finalizing recording: %w", err)
	}

	name := filePrefix + start.Format("20060102_150405") + encoder.Ext(s.format)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, enc.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing recording: %w", err)
	}
	return path, nil
}

// Prune removes recordings older than maxAge; maxAge <= 0 removes them
// all. Only files this store wrote are touched. Returns the number
// removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading recordings directory: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if maxAge > 0 && info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
