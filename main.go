package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/lipgloss"

	"speechlens/analysis"
	"speechlens/audio"
	"speechlens/beep"
	"speechlens/clipboard"
	"speechlens/config"
	"speechlens/doctor"
	"speechlens/encoder"
	"speechlens/hotkey"
	"speechlens/log"
	"speechlens/prefs"
	"speechlens/report"
	"speechlens/shutdown"
	"speechlens/workflow"
)

var version = "dev"

type options struct {
	configPath string
	backend    string
	format     string
	device     string
	logPath    string
	profile    string
	setup      bool
	doctor     bool
	version    bool
	crash      bool
	test       bool
	tui        bool
	noBeep     bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/speechlens/config.yaml)")
	flag.StringVar(&o.backend, "backend", "", "analysis backend base URL (e.g. http://localhost:8000)")
	flag.StringVar(&o.format, "format", "", "upload format: wav or flac")
	flag.StringVar(&o.device, "device", "", "use named microphone device")
	flag.StringVar(&o.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flag.StringVar(&o.profile, "profile", "", "enable pprof profiling server (e.g., :6060 or localhost:6060)")
	flag.BoolVar(&o.setup, "setup", false, "select microphone device (otherwise uses system default)")
	flag.BoolVar(&o.doctor, "doctor", false, "run system diagnostics and exit")
	flag.BoolVar(&o.version, "version", false, "print version and exit")
	flag.BoolVar(&o.crash, "crash", false, "trigger synthetic panic for testing crash logging")
	flag.BoolVar(&o.test, "test", false, "test mode (headless, stdin-driven, audio from a WAV file)")
	flag.BoolVar(&o.tui, "tui", true, "run with terminal UI; false listens for the global hotkey")
	flag.BoolVar(&o.noBeep, "nobeep", false, "disable audible cues")
	flag.Parse()
	return o
}

// applyFlags overlays only the flags that were given on the command line.
func applyFlags(o options, cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.BackendURL = o.backend
		case "format":
			cfg.Format = o.format
		case "device":
			cfg.Device = o.device
		case "logpath":
			cfg.LogPath = o.logPath
		case "nobeep":
			cfg.Beep = !o.noBeep
		}
	})
}

func fatalf(format string, args ...any) {
	log.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	log.Close()
	os.Exit(1)
}

func initCrashLog() {
	crashFile, err := os.OpenFile(filepath.Join(log.Dir(), "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func run() {
	o := parseFlags()

	if o.version {
		fmt.Printf("speechlens %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(config.Sources{File: o.configPath, Required: o.configPath != ""})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(o, &cfg)
	if err := config.Validate(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if o.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", o.profile)
			if err := http.ListenAndServe(o.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if o.crash {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if !cfg.Beep {
		beep.Disable()
	}

	client, err := analysis.NewClient(cfg.BackendURL, analysis.WithExtraTypes(cfg.ContentTypes()...))
	if err != nil {
		fatalf("%v", err)
	}

	if o.test {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: speechlens -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(args[0], cfg, client)
		return
	}

	actx, err := audio.NewContext()
	if err != nil {
		fatalf("initializing audio: %v", err)
	}
	defer actx.Close()

	device, err := resolveDevice(actx, cfg.Device, o.setup)
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Printf("Warning: device selection failed: %v\nFalling back to default device\n", err)
	}

	if o.doctor {
		ctx, stop := shutdown.Context(context.Background())
		code := doctor.Run(ctx, doctor.Deps{
			Audio:     actx,
			Device:    device,
			Gain:      cfg.Gain,
			Backend:   client,
			Hotkey:    hotkey.Diagnose,
			Clipboard: clipboard.Verify,
			Out:       os.Stdout,
		})
		stop()
		log.Close()
		os.Exit(code)
	}

	src := &audio.Source{
		Ctx:    actx,
		Device: device,
		Config: audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels, Gain: cfg.Gain},
	}
	log.Infof("startup version=%s backend=%s format=%s device=%q", version, client.Endpoint(), cfg.Format, src.DeviceLabel())

	if !o.tui {
		runHeadless(cfg, src, client)
		return
	}

	store, err := prefs.Load(cfg.ConfigDir, lipgloss.HasDarkBackground)
	if err != nil {
		log.Warnf("preferences: %v", err)
		store = nil
	}
	runTUI(cfg, src, actx, client, store)
}

// resolveDevice maps -device or -setup to a device; nil means system default.
func resolveDevice(actx audio.Context, name string, setup bool) (*audio.DeviceInfo, error) {
	switch {
	case name != "":
		devices, err := actx.Devices()
		if err != nil {
			return nil, fmt.Errorf("enumerating devices: %w", err)
		}
		for i := range devices {
			if devices[i].Name == name {
				return &devices[i], nil
			}
		}
		return nil, fmt.Errorf("device %q not found", name)
	case setup:
		return selectDevice(actx)
	}
	return nil, nil
}

func runHeadless(cfg config.Config, src *audio.Source, client *analysis.Client) {
	sink := newAuditSink(&consoleSink{out: os.Stdout, theme: report.DarkTheme})
	rec := workflow.New(src, client, sink, workflow.WithFormat(cfg.Format))

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fatalf("registering hotkey: %v", err)
	}
	defer hk.Unregister()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	fmt.Printf("speechlens %s listening. Press %s to start and stop a recording.\n", version, hotkey.Chord)
	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown")
			return
		case <-hk.Pressed():
			go func() {
				_, err := rec.Toggle(ctx)
				if err != nil && !errors.Is(err, workflow.ErrPermissionDenied) && !errors.Is(err, workflow.ErrAnalysisFailed) {
					log.Warnf("toggle: %v", err)
				}
			}()
		}
	}
}
