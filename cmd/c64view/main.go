// Package main implements the c64view executable.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrewimm/wasm-c64/internal/app"
	"github.com/andrewimm/wasm-c64/internal/debug"
	"github.com/andrewimm/wasm-c64/internal/version"
)

func main() {
	// Parse command line flags
	var (
		configFile = flag.String("config", "", "Path to configuration file (.json, .toml, .yaml)")
		enginePath = flag.String("engine", "", "Path to the engine module (.wasm)")
		backend    = flag.String("backend", "", "Presentation backend: ebitengine, headless, terminal")
		frames     = flag.Int("frames", -1, "Frames to run on the headless backend (0 = until stopped)")
		scriptPath = flag.String("script", "", "Lua automation script")
		dumpDir    = flag.String("dump", "", "Dump composed frames into this directory")
		debugMode  = flag.Bool("debug", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *showVer {
		version.PrintBuildInfo(os.Stdout)
		os.Exit(0)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	config := app.NewConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		log.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v", configPath, err)
	}

	// Command-line flags override the file
	if *enginePath != "" {
		config.Engine.Path = *enginePath
	}
	if *backend != "" {
		config.Video.Backend = *backend
	}
	if *frames >= 0 {
		config.Video.MaxFrames = *frames
	}
	if *scriptPath != "" {
		config.Script.Path = *scriptPath
	}
	if *dumpDir != "" {
		config.Debug.DumpFrames = true
		config.Debug.DumpDir = *dumpDir
	}
	if *debugMode {
		config.Debug.EnableLogging = true
	}
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		log.Fatalf("c64view failed: %v", err)
	}
}

func run(ctx context.Context, config *app.Config) error {
	application, err := app.NewApplication(config)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("Application cleanup error: %v", err)
		}
	}()

	log.Printf("[APP] Loading engine %s", config.Engine.Path)
	if err := application.Load(ctx); err != nil {
		return err
	}

	w, h := application.GetWindow().GetSize()
	log.Printf("[APP] Starting on %s backend, window %dx%d, filter %s", config.Video.Backend, w, h, config.Video.Filter)

	if err := application.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("Session Statistics:\n")
	fmt.Printf("   Frames drawn: %d\n", application.GetFrameCount())
	fmt.Printf("   Session time: %v\n", application.GetUptime())

	if config.Video.Backend == "headless" {
		printFrameSummary(application)
	}
	return nil
}

// printFrameSummary reports the dominant colors of the last frame
func printFrameSummary(application *app.Application) {
	frame := application.GetMachine().LastFrame()
	if frame == nil {
		return
	}
	total := frame.Bounds().Dx() * frame.Bounds().Dy()
	hist := debug.ColorHistogram(frame)
	fmt.Printf("   Last frame: %d distinct colors\n", len(hist))
	for i, entry := range hist {
		if i >= 3 {
			break
		}
		fmt.Printf("     #%06X %5.1f%%\n", entry.RGB, float64(entry.Count)/float64(total)*100)
	}
}

func printUsage() {
	fmt.Printf("c64view %s - Commodore 64 display host\n\n", version.GetVersion())
	fmt.Println("Usage: c64view [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Keys:")
	fmt.Println("  F8   step one instruction while paused")
	fmt.Println("  F9   pause / resume")
	fmt.Println("  F10  reset")
	fmt.Println("  F11  toggle fullscreen")
	fmt.Println("  F12  toggle status overlay")
	fmt.Println("  Ctrl+Shift+V  type the clipboard")
}
