package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetcap/app"
	"meetcap/audio"
	"meetcap/config"
	"meetcap/log"
	"meetcap/transcriber"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", "", "Config file path (default: ~/.meetcap/config.ini)")
	deviceFlag := flag.String("device", "", "Capture from the device with this ID")
	setupFlag := flag.Bool("setup", false, "Select the capture device interactively")
	modeFlag := flag.String("mode", "", "Capture mode: system, mic, or mixed")
	formatFlag := flag.String("format", "", "Recording format: wav or flac")
	modelFlag := flag.String("model", "", "Whisper model size (tiny, base, small, medium, large-v3)")
	keepFlag := flag.Bool("keep", false, "Keep the audio file after transcription")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("meetcap %s\n", version)
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatal(err)
	}
	if *modeFlag != "" {
		cfg.Mode = *modeFlag
	}
	if *formatFlag != "" {
		cfg.Format = *formatFlag
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if *keepFlag {
		cfg.AutoDeleteAudio = false
	}

	if err := cfg.EnsureDirs(); err != nil {
		fatal(err)
	}
	log.SetDir(cfg.LogDir)
	log.Init()
	defer log.Close()

	ctx, err := audio.NewContext()
	if err != nil {
		fatal(fmt.Errorf("initializing audio: %w", err))
	}
	defer ctx.Close()

	a, err := app.NewWithBroker(cfg, ctx)
	if err != nil {
		fatal(err)
	}

	cmd := "record"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	switch cmd {
	case "devices":
		err = listDevices(ctx)
	case "record":
		err = record(a, ctx, cfg, *deviceFlag, *setupFlag)
	case "transcribe":
		if flag.NArg() < 2 {
			fatal(fmt.Errorf("usage: meetcap transcribe <audio file>"))
		}
		err = transcribe(a, flag.Arg(1))
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `meetcap records meeting audio and transcribes it locally.

Usage:
  meetcap [flags]                  record, then transcribe on Ctrl+C
  meetcap [flags] devices          list capture devices
  meetcap [flags] record           same as the default
  meetcap [flags] transcribe FILE  transcribe an existing recording

Flags:
`)
	flag.PrintDefaults()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "meetcap: %v\n", err)
	log.Errorf("%v", err)
	log.Close()
	os.Exit(1)
}

func listDevices(ctx audio.Context) error {
	devices, err := audio.ListInputDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No input devices found.")
		return nil
	}
	for _, d := range devices {
		tag := ""
		if d.IsLoopback {
			tag = "  [system audio]"
		}
		if d.IsDefault {
			tag += "  [default]"
		}
		fmt.Printf("  %-24s %s%s\n", d.ID, d.Name, tag)
	}
	return nil
}

func record(a *app.App, ctx audio.Context, cfg *config.Config, deviceID string, setup bool) error {
	if setup && deviceID == "" {
		dev, err := selectDevice(ctx)
		if err != nil {
			return err
		}
		deviceID = dev.ID
	}

	if err := a.StartRecording(deviceID); err != nil {
		return err
	}
	fmt.Printf("Recording (%s, %s)... press Ctrl+C to stop.\n", cfg.Mode, cfg.Format)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-sig:
			signal.Stop(sig)
			fmt.Print("\r\x1b[K")
			break loop
		case <-ticker.C:
			fmt.Printf("\r  %s  %s", clock(a.Duration()), meter(a.Level()))
		}
	}

	elapsed := a.Duration()
	path, err := a.StopRecording()
	if err == app.ErrNoAudio {
		fmt.Println("No audio captured; nothing saved.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s (%.1fs)\n", path, elapsed)

	return transcribe(a, path)
}

func transcribe(a *app.App, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("audio file: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res := a.Transcribe(ctx, path, func(line string) {
		fmt.Fprintf(os.Stderr, "  %s\n", line)
	})

	switch res.Outcome {
	case transcriber.Success:
		fmt.Printf("\n%s\n", res.FullText)
		fmt.Printf("\n(%s, %.1fs of audio)\n", res.Language, res.Duration)
	case transcriber.NoSpeech:
		fmt.Println("No speech detected.")
	case transcriber.Failed:
		return fmt.Errorf("transcription failed: %s", res.Err)
	}
	return nil
}

func clock(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// meter renders a 20-cell level bar. Input levels rarely pass 0.3, so the
// scale is stretched for legibility.
func meter(level float64) string {
	cells := int(level * 3 * 20)
	if cells > 20 {
		cells = 20
	}
	bar := make([]byte, 20)
	for i := range bar {
		if i < cells {
			bar[i] = '#'
		} else {
			bar[i] = '-'
		}
	}
	return string(bar)
}
