// screenrec - Screen activity recorder with deterministic replay
//
//	screenrec screens          List attached displays
//	screenrec record           Record the screen and input events
//	screenrec replay <file>    Replay a recorded session
//	screenrec list             List indexed recordings
//	screenrec status           Show capability and configuration status
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"screenrec/internal/capture"
	"screenrec/internal/config"
	"screenrec/internal/display"
	"screenrec/internal/geometry"
	"screenrec/internal/hook"
	"screenrec/internal/library"
	"screenrec/internal/logging"
	"screenrec/internal/recorder"
	"screenrec/internal/recording"
	"screenrec/internal/replay"
	"screenrec/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "screens":
		cmdScreens()
	case "record":
		cmdRecord()
	case "replay":
		cmdReplay()
	case "list":
		cmdList()
	case "status":
		cmdStatus()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`screenrec - Screen activity recorder with deterministic replay

USAGE:
    screenrec <command> [options]

COMMANDS:
    screens             List attached displays
    record              Record screen frames and input events
    replay <file>       Replay a recorded session's input events
    list                List indexed recordings
    status              Show capability and configuration status
    help                Show this help message

WORKFLOW:
    1. screenrec screens                 # Pick a display
    2. screenrec record -screen 0        # Ctrl-C stops the session
    3. screenrec list                    # Find the recording
    4. screenrec replay <base>.json      # Re-drive the input events

Recording produces two artifacts sharing a timestamp base name: a
<base>.frames directory of encoded frames and a <base>.json event log.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads the config file and installs the configured logger.
func setup(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fatal("Config error: %v", err)
	}

	logger, err := logging.New(&logging.Config{
		Level:     logging.ParseLevel(cfg.Logging.Level),
		Format:    logging.ParseFormat(cfg.Logging.Format),
		Output:    outputFor(cfg),
		FilePath:  cfg.Logging.FilePath,
		MaxSize:   50,
		Component: "screenrec",
	})
	if err != nil {
		fatal("Logging error: %v", err)
	}
	logging.SetDefault(logger)
	return cfg
}

func outputFor(cfg *config.Config) string {
	if cfg.Logging.FilePath != "" {
		return "both"
	}
	return "stderr"
}

func cmdScreens() {
	fs := flag.NewFlagSet("screens", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	fs.Parse(os.Args[2:])
	setup(*configPath)

	provider := display.New()
	if ok, reason := provider.Available(); !ok {
		fatal("Display enumeration unavailable: %s", reason)
	}

	screens, err := provider.List()
	if err != nil {
		fatal("Could not enumerate displays: %v", err)
	}
	for i, g := range screens {
		primary := ""
		if i == 0 {
			primary = " (primary)"
		}
		fmt.Printf("Screen %d: %dx%d at (%d, %d)%s\n", i, g.Width, g.Height, g.Left, g.Top, primary)
	}
}

func cmdRecord() {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	screen := fs.Int("screen", -1, "Display index to record (default from config)")
	outDir := fs.String("outdir", "", "Output directory (default from config)")
	duration := fs.Duration("duration", 0, "Stop automatically after this long (0 = until Ctrl-C)")
	fps := fs.Int("fps", 0, "Capture rate (default from config)")
	quality := fs.String("quality", "", "low, medium, high, or a scale factor in (0, 1]")
	codec := fs.String("codec", "", "Requested frame encoding (default from config)")
	simulate := fs.Bool("simulate", false, "Use simulated input and frame sources")
	fs.Parse(os.Args[2:])

	cfg := setup(*configPath)
	if *screen >= 0 {
		cfg.Record.Screen = *screen
	}
	if *outDir != "" {
		cfg.Record.OutDir = *outDir
	}
	if *fps > 0 {
		cfg.Capture.FPS = *fps
	}
	if *quality != "" {
		cfg.Capture.Quality = *quality
	}
	if *codec != "" {
		cfg.Capture.Codec = *codec
	}
	scale, err := config.QualityScale(cfg.Capture.Quality)
	if err != nil {
		fatal("%v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fatal("%v", err)
	}

	geom := pickScreen(cfg.Record.Screen)

	var hk hook.Hook
	var source capture.Source
	if *simulate {
		hk = hook.NewSimulated()
		source, err = capture.NewSimulatedSource(geom)
	} else {
		hk = hook.New()
		source, err = capture.NewSource(geom)
	}
	if err != nil {
		fatal("Frame source unavailable: %v", err)
	}
	defer source.Close()

	sess, err := session.New(session.Config{
		Recorder: recorder.New(recorder.Config{
			Hook:         hk,
			MoveThrottle: time.Duration(cfg.Record.MoveThrottleMs) * time.Millisecond,
		}),
		Capture: capture.NewLoop(capture.Config{
			Source:                 source,
			Codec:                  cfg.Capture.Codec,
			MaxConsecutiveFailures: cfg.Capture.MaxConsecutiveFailures,
		}),
		OutDir: cfg.Record.OutDir,
		FPS:    cfg.Capture.FPS,
		Scale:  scale,
	})
	if err != nil {
		fatal("%v", err)
	}
	if err := sess.Start(geom); err != nil {
		fatal("Could not start recording: %v", err)
	}

	fmt.Printf("Recording screen %d at %d fps. Ctrl-C to stop.\n", cfg.Record.Screen, cfg.Capture.FPS)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	var timeout <-chan time.Time
	if *duration > 0 {
		timer := time.NewTimer(*duration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-sigChan:
		fmt.Println("\nStopping...")
	case <-timeout:
		fmt.Println("Duration reached, stopping...")
	case err := <-sess.Aborted():
		fmt.Fprintf(os.Stderr, "Capture failed: %v\n", err)
	}

	res, err := sess.Stop()
	if err != nil {
		fatal("Could not finalize session: %v", err)
	}
	fmt.Printf("Saved %d events and %d frames over %s\n",
		res.Events, res.Frames, res.Duration.Round(time.Second))
	fmt.Printf("  %s\n  %s\n", res.VideoPath, res.RecordingPath)
	if res.Aborted {
		fmt.Println("Note: frame capture aborted early; artifacts are partial.")
	}

	indexArtifact(cfg, res.RecordingPath)
}

// indexArtifact registers the fresh recording in the catalog.
// Best-effort: a catalog problem never fails the recording.
func indexArtifact(cfg *config.Config, path string) {
	lib, err := library.Open(cfg.Library.Path, nil)
	if err != nil {
		return
	}
	defer lib.Close()
	lib.Index(path)
}

func pickScreen(index int) geometry.Geometry {
	screens, err := display.New().List()
	if err != nil {
		fatal("Could not enumerate displays: %v", err)
	}
	if index < 0 || index >= len(screens) {
		fatal("No screen %d (have %d)", index, len(screens))
	}
	return screens[index]
}

func cmdReplay() {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	speed := fs.Float64("speed", 0, "Playback multiplier (default from config)")
	dryRun := fs.Bool("dry-run", false, "Describe actions instead of synthesizing input")
	delay := fs.Duration("delay", -1, "Delay before the first event (default from config)")
	stopKey := fs.String("stop-key", "", "Key that cancels replay when double-tapped")
	fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fatal("Usage: screenrec replay <recording.json> [-speed N] [-dry-run] [-delay D] [-stop-key K]")
	}
	cfg := setup(*configPath)
	if *speed <= 0 {
		*speed = cfg.Replay.Speed
	}
	if *delay < 0 {
		*delay = time.Duration(cfg.Replay.StartDelaySec * float64(time.Second))
	}
	if *stopKey == "" {
		*stopKey = cfg.Replay.StopKey
	}

	rec, err := recording.Load(fs.Arg(0), nil)
	if err != nil {
		fatal("Could not load recording: %v", err)
	}
	fmt.Printf("Loaded %d events over %.1fs (screen %s)\n",
		len(rec.Events), rec.Duration(), rec.Meta.Screen.String())

	var synth replay.Synthesizer
	if !*dryRun {
		synth, err = replay.NewSynthesizer(rec.Meta.Screen)
		if err != nil {
			fatal("Input synthesis unavailable: %v", err)
		}
		defer synth.Close()
	}

	tok := replay.NewToken()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		fmt.Println("\nCancelling...")
		tok.Cancel()
	}()

	hk := hook.New()
	if ok, _ := hk.Available(); ok && !*dryRun {
		window := time.Duration(cfg.Replay.StopWindowMs) * time.Millisecond
		sub, err := replay.ArmStopKey(hk, *stopKey, window, tok, nil)
		if err == nil {
			defer sub.Unsubscribe()
			fmt.Printf("Double-tap %s to cancel.\n", *stopKey)
		}
	}

	engine := replay.NewEngine(replay.Config{Synth: synth})
	err = engine.Run(rec, replay.Options{
		Speed:        *speed,
		DryRun:       *dryRun,
		StartDelay:   *delay,
		PollInterval: time.Duration(cfg.Replay.PollIntervalMs) * time.Millisecond,
		Token:        tok,
	})
	if err != nil {
		fatal("Replay failed: %v", err)
	}
	fmt.Printf("Replay %s.\n", engine.State())
}

func cmdList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	rescan := fs.Bool("rescan", true, "Re-scan the output directory before listing")
	watch := fs.Bool("watch", false, "Keep the catalog in sync until interrupted")
	fs.Parse(os.Args[2:])
	cfg := setup(*configPath)

	lib, err := library.Open(cfg.Library.Path, nil)
	if err != nil {
		fatal("Could not open recording catalog: %v", err)
	}
	defer lib.Close()

	if *watch || cfg.Library.Watch {
		w, err := lib.Watch(cfg.Record.OutDir, 0)
		if err != nil {
			fatal("Watch failed: %v", err)
		}
		defer w.Stop()

		printEntries(lib)
		fmt.Println("\nWatching for new recordings. Ctrl-C to stop.")
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan
		return
	}

	if *rescan {
		if _, err := lib.Scan(cfg.Record.OutDir); err != nil {
			fatal("Scan failed: %v", err)
		}
	}
	printEntries(lib)
}

func printEntries(lib *library.Library) {
	entries, err := lib.List()
	if err != nil {
		fatal("Could not list recordings: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No recordings indexed.")
		return
	}

	fmt.Printf("%-20s %-22s %6s %8s %6s %s\n", "BASE", "SCREEN", "FPS", "EVENTS", "SECS", "FRAMES")
	for _, e := range entries {
		frames := "-"
		if e.FramesPath != "" {
			frames = "yes"
		}
		fmt.Printf("%-20s %-22s %6d %8d %6.1f %s\n",
			e.BaseName, e.Screen, e.FPS, e.Events, e.Duration, frames)
	}
}

func cmdStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	fs.Parse(os.Args[2:])
	cfg := setup(*configPath)

	fmt.Println("screenrec status")
	fmt.Printf("  Config:        %s\n", configDisplayPath(*configPath))
	fmt.Printf("  Output dir:    %s\n", cfg.Record.OutDir)
	fmt.Printf("  Catalog:       %s\n", cfg.Library.Path)
	fmt.Println()

	report := func(name string, ok bool, reason string) {
		state := "unavailable"
		if ok {
			state = "available"
		}
		fmt.Printf("  %-16s %-12s %s\n", name, state, reason)
	}

	hookOK, hookReason := hook.New().Available()
	report("input hook", hookOK, hookReason)

	srcOK, srcReason := capture.SourceAvailable()
	report("frame source", srcOK, srcReason)

	dispOK, dispReason := display.New().Available()
	report("displays", dispOK, dispReason)

	synthOK, synthReason := replay.SynthesisAvailable()
	report("input synthesis", synthOK, synthReason)
}

func configDisplayPath(path string) string {
	if path != "" {
		return path
	}
	return config.DefaultPath() + " (default)"
}
