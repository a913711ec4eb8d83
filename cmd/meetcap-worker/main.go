// meetcap-worker runs a single transcription in its own process so an
// engine crash never takes the recorder down. It is launched as:
//
//	meetcap-worker <audio file> <result file>
//
// Progress goes to stderr one line at a time; the outcome is written to
// the result file as JSON. A zero exit means a result was written, even
// when that result reports an error.
package main

import (
	"fmt"
	"os"

	"meetcap/config"
	"meetcap/worker"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: meetcap-worker <audio file> <result file>")
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("MEETCAP_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "meetcap-worker: %v\n", err)
		os.Exit(2)
	}

	eng := &worker.CLIEngine{
		Binary:    cfg.WhisperBin,
		ModelPath: cfg.WhisperModel,
		Language:  cfg.Language,
	}
	os.Exit(worker.Run(eng, cfg.Model, os.Args[1], os.Args[2], os.Stderr))
}
