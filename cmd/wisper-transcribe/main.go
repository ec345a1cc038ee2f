// Command wisper-transcribe transcribes an audio file and saves the text
// next to it.
//
// Usage:
//
//	wisper-transcribe <audio-file> [model-size|api|yandex]
//
// The second argument picks a local model size (default "base"), "api" for
// Groq or "yandex" for SpeechKit.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	"github.com/BrianIS8090/wisper/internal/config"
	"github.com/BrianIS8090/wisper/internal/models"
	"github.com/BrianIS8090/wisper/internal/transcribe"
	"github.com/BrianIS8090/wisper/internal/transcript"
)

func main() {
	configPath := cli.StringP("config", "c", "", "path to config file (default: ~/.config/wisper/config.yaml)")
	envPath := cli.StringP("env", "e", "", "path to settings dotfile (default: ~/.config/wisper/.env)")
	logLevel := cli.StringP("log-level", "l", "warn", "log level: debug, info, warn or error")
	cli.Usage = usage
	cli.Parse()

	level, err := config.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: --log-level %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.TimeOnly})))

	if cli.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	audioPath := cli.Arg(0)
	mode := "base"
	if cli.NArg() > 1 {
		mode = strings.ToLower(cli.Arg(1))
	}

	if _, err := os.Stat(audioPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: file %q not found.\n", audioPath)
		os.Exit(1)
	}

	cfg, err := buildConfig(*configPath, *envPath, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	text, err := run(ctx, cfg, audioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nTranscription result:\n\n%s\n", text)

	out, err := transcript.Write(audioPath, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nTranscription saved to %q\n", out)
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: wisper-transcribe [flags] <audio-file> [model-size|api|yandex]")
	fmt.Fprintln(os.Stderr, "  Local:  wisper-transcribe my_audio.mp3 small")
	fmt.Fprintln(os.Stderr, "  Groq:   wisper-transcribe my_audio.mp3 api")
	fmt.Fprintln(os.Stderr, "  Yandex: wisper-transcribe my_audio.ogg yandex")
	fmt.Fprintln(os.Stderr)
	cli.PrintDefaults()
}

// buildConfig loads the config and dotfile, then points it at the backend
// named by mode.
func buildConfig(configPath, envPath, mode string) (*config.Config, error) {
	cfg := config.Default()
	if configPath == "" {
		if _, err := os.Stat(config.DefaultConfigPath()); err == nil {
			configPath = config.DefaultConfigPath()
		}
	}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if envPath == "" {
		envPath = config.DefaultEnvPath()
	}
	settings, err := config.ReadSettings(envPath)
	if err != nil {
		return nil, err
	}
	cfg.Apply(settings)

	switch mode {
	case "api", config.BackendGroq:
		cfg.Backend = config.BackendGroq
	case config.BackendYandex:
		cfg.Backend = config.BackendYandex
	default:
		cfg.Backend = config.BackendLocal
		cfg.Local.Model = mode
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, audioPath string) (string, error) {
	if cfg.Backend == config.BackendLocal {
		path, err := models.Path(cfg.Local.ModelsDir, cfg.Local.Model)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Model %q is not downloaded yet, fetching it...\n", cfg.Local.Model)
			if _, err := models.Download(ctx, cfg.Local.ModelsDir, cfg.Local.Model, os.Stdout); err != nil {
				return "", err
			}
		}
		fmt.Printf("Loading model %q...\n", cfg.Local.Model)
	}

	tr, err := transcribe.New(cfg)
	if err != nil {
		return "", err
	}
	defer tr.Close()

	fmt.Printf("Transcribing %q with %s...\n", audioPath, tr.Name())
	start := time.Now()
	text, err := tr.TranscribeFile(ctx, audioPath)
	if err != nil {
		return "", err
	}
	slog.Info("transcribed", "took", time.Since(start).Round(time.Millisecond))

	if text == "" {
		return "", errors.New("transcription failed or returned empty text")
	}
	return text, nil
}
