// Command wisper is a push-to-talk dictation daemon: hold the hotkey, speak,
// release, and the recognized text is pasted into the focused window.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	"github.com/BrianIS8090/wisper/internal/audio"
	"github.com/BrianIS8090/wisper/internal/config"
	"github.com/BrianIS8090/wisper/internal/dictation"
	"github.com/BrianIS8090/wisper/internal/hotkey"
	"github.com/BrianIS8090/wisper/internal/indicator"
	"github.com/BrianIS8090/wisper/internal/inject"
	"github.com/BrianIS8090/wisper/internal/models"
	"github.com/BrianIS8090/wisper/internal/transcribe"
)

type options struct {
	configPath string
	envPath    string
	backend    string
	model      string
	logLevel   string
}

func main() {
	var opts options
	cli.StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: ~/.config/wisper/config.yaml)")
	cli.StringVarP(&opts.envPath, "env", "e", "", "path to settings dotfile (default: ~/.config/wisper/.env)")
	cli.StringVarP(&opts.backend, "backend", "b", "", "transcription backend: local, groq or yandex")
	cli.StringVarP(&opts.model, "model", "m", "", "local whisper model size: "+strings.Join(models.Sizes, ", "))
	cli.StringVarP(&opts.logLevel, "log-level", "l", "", "log level: debug, info, warn or error")
	noTray := cli.Bool("no-tray", false, "run without the system tray indicator")
	initConfig := cli.Bool("init-config", false, "write the default config file and exit")
	saveSettings := cli.Bool("save-settings", false, "store API keys, model and backend in the dotfile and exit")
	downloadModel := cli.String("download-model", "", "download a local whisper model and exit")
	listModels := cli.Bool("list-models", false, "list local whisper models and exit")
	cli.Parse()

	if opts.envPath == "" {
		opts.envPath = config.DefaultEnvPath()
	}
	setupLogging(slog.LevelInfo)

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fatal("writing default config", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
		} else {
			fmt.Printf("Wrote default config to %s\n", path)
		}
		return
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		fatal("config", err)
	}
	setupLogging(cfg.SlogLevel())

	switch {
	case *listModels:
		printModels(cfg.Local.ModelsDir)
		return
	case *downloadModel != "":
		if _, err := models.Download(context.Background(), cfg.Local.ModelsDir, *downloadModel, os.Stdout); err != nil {
			fatal("model download", err)
		}
		return
	case *saveSettings:
		if err := config.SaveSettings(opts.envPath, cfg.Settings()); err != nil {
			fatal("saving settings", err)
		}
		fmt.Printf("Settings saved to %s\n", opts.envPath)
		return
	}

	if err := cfg.Validate(); err != nil {
		fatal("config validation", err)
	}
	capForBackend(cfg)
	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr, err := newTranscriber(cfg)
	if err != nil {
		fatal("transcriber", err)
	}

	recorder, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		tr.Close()
		fatal("audio recorder (check microphone permissions)", err)
	}
	slog.Info("audio recorder ready", "rate", cfg.Audio.SampleRate, "channels", cfg.Audio.Channels)

	injector := inject.NewInjector(cfg.Inject)
	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.Mode)

	observers := []dictation.Observer{indicator.Log{}}
	var tray *indicator.Tray
	if cfg.Indicator.Enabled && !*noTray {
		tray = indicator.NewTray(tr.Name())
		observers = append(observers, tray)
	}

	session := dictation.New(recorder, tr, injector, dictation.Options{
		MaxDuration: cfg.Audio.MaxDuration,
		MinDuration: cfg.Audio.MinDuration,
		Debounce:    cfg.Debounce,
	}, observers...)

	go watchConfig(ctx, opts, session, tray)
	go listener.Start()

	runDone := make(chan error, 1)
	go func() { runDone <- session.Run(ctx, listener.Events()) }()

	slog.Info("ready", "hotkey", strings.Join(cfg.Hotkey.Keys, "+"), "mode", cfg.Hotkey.Mode, "backend", tr.Name())

	if tray != nil {
		go func() {
			select {
			case <-tray.Quit():
				slog.Info("quit from tray")
				stop()
			case <-ctx.Done():
			}
			tray.Stop()
		}()
		// systray needs the main goroutine.
		tray.Run(nil)
	} else {
		<-ctx.Done()
	}

	slog.Info("shutting down")
	stop()
	listener.Stop()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("session", "err", err)
	}
	session.Close()
	recorder.Close()
	slog.Info("goodbye")
	// Exit directly to avoid gohook's C cleanup crash.
	// The OS reclaims the event hook on process exit.
	os.Exit(0)
}

func setupLogging(level slog.Level) {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}

func fatal(what string, err error) {
	slog.Error(what, "err", err)
	os.Exit(1)
}

// resolveConfig layers the config file, the settings dotfile and the command
// line flags, in that order.
func resolveConfig(opts options) (*config.Config, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	settings, err := config.ReadSettings(opts.envPath)
	if err != nil {
		return nil, err
	}
	cfg.Apply(settings)

	if opts.backend != "" {
		cfg.Backend = config.BackendForMode(opts.backend)
	}
	if opts.model != "" {
		cfg.Local.Model = opts.model
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		slog.Debug("config loaded", "path", defaultPath)
		return cfg, nil
	}

	slog.Debug("no config file found, using defaults")
	return config.Default(), nil
}

// capForBackend clamps the recording limit to what the backend accepts.
func capForBackend(cfg *config.Config) {
	if cfg.Backend == config.BackendYandex && cfg.Audio.MaxDuration > transcribe.YandexMaxDuration {
		slog.Warn("yandex accepts at most 30s per request, capping max_duration",
			"configured", cfg.Audio.MaxDuration, "cap", transcribe.YandexMaxDuration)
		cfg.Audio.MaxDuration = transcribe.YandexMaxDuration
	}
}

func newTranscriber(cfg *config.Config) (transcribe.Transcriber, error) {
	if cfg.Backend == config.BackendLocal {
		path, err := models.Path(cfg.Local.ModelsDir, cfg.Local.Model)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("model %q not found at %s (run: wisper --download-model %s)", cfg.Local.Model, path, cfg.Local.Model)
		}
		slog.Info("loading whisper model", "model", cfg.Local.Model)
	}

	start := time.Now()
	tr, err := transcribe.New(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("transcriber ready", "backend", tr.Name(), "took", time.Since(start).Round(time.Millisecond))
	return tr, nil
}

// watchConfig rebuilds the transcriber when the config file or dotfile
// changes, along with the recording limit that backend accepts. Hotkey and
// other audio settings need a restart.
func watchConfig(ctx context.Context, opts options, session *dictation.Session, tray *indicator.Tray) {
	paths := []string{opts.envPath}
	if opts.configPath != "" {
		paths = append(paths, opts.configPath)
	} else {
		paths = append(paths, config.DefaultConfigPath())
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		cfg, err := resolveConfig(opts)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			slog.Warn("config reload skipped", "err", err)
			return
		}
		capForBackend(cfg)

		tr, err := newTranscriber(cfg)
		if err != nil {
			slog.Warn("config reload skipped", "err", err)
			return
		}
		session.Reload(tr, cfg.Audio.MaxDuration)
		if tray != nil {
			tray.SetBackend(tr.Name())
		}
	}

	err := config.Watch(ctx, paths, func(path string) {
		slog.Info("config changed", "path", path)
		// Editors write in bursts; settle before reloading.
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(300*time.Millisecond, reload)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("config watcher stopped", "err", err)
	}
}

func printModels(dir string) {
	have := map[string]bool{}
	for _, s := range models.Downloaded(dir) {
		have[s] = true
	}
	fmt.Printf("Models in %s:\n", dir)
	for _, s := range models.Sizes {
		mark := " "
		if have[s] {
			mark = "*"
		}
		fmt.Printf("  %s %s\n", mark, models.Describe(s))
	}
	fmt.Println("(* = downloaded)")
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== wisper ===")
	fmt.Printf("  Backend:  %s\n", cfg.Backend)
	if cfg.Backend == config.BackendLocal {
		fmt.Printf("  Model:    %s\n", cfg.Local.Model)
	}
	fmt.Printf("  Language: %s\n", cfg.Language)
	fmt.Printf("  Hotkey:   %s (%s mode)\n", strings.Join(cfg.Hotkey.Keys, "+"), cfg.Hotkey.Mode)
	fmt.Printf("  Audio:    %dHz, %dch, max %s\n", cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.MaxDuration)
	fmt.Printf("  Inject:   %s\n", cfg.Inject.Method)
	fmt.Println("==============")
}
