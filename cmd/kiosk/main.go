// Command kiosk is the terminal check-in station. It reads employee codes
// from stdin (a keyboard or a badge scanner in keyboard mode), grabs a
// frame and posts the check-in to the backend.
//
//	kiosk -backend http://10.0.0.5:8080 -capture "fswebcam --no-banner -"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/kiosk"
	"github.com/warp/attendance-engine/logger"
)

func main() {
	cfg, err := config.LoadKiosk()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	backend := flag.String("backend", cfg.BackendURL, "backend base URL")
	frameFile := flag.String("frame", "", "read the snapshot from this file on every check-in")
	capture := flag.String("capture", "", "command whose stdout is the snapshot, e.g. \"fswebcam --no-banner -\"")
	timeout := flag.Duration("timeout", kiosk.DefaultTimeout, "backend request timeout")
	flag.Parse()

	log := logger.New(cfg.LogLevel)

	var frames kiosk.FrameSource = kiosk.NoFrame{}
	switch {
	case *capture != "":
		src, err := kiosk.NewCommandFrame(*capture, 10*time.Second)
		if err != nil {
			log.Error("invalid capture command", "error", err)
			os.Exit(2)
		}
		frames = src
	case *frameFile != "":
		frames = kiosk.FileFrame{Path: *frameFile}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := kiosk.NewClient(*backend, *timeout)
	if err := client.Ping(ctx); err != nil {
		log.Warn("backend not reachable yet", "backend", *backend, "error", err)
	}

	term := &kiosk.Terminal{Client: client, Frames: frames, Log: log}
	if err := term.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Error("kiosk stopped", "error", err)
		os.Exit(1)
	}
}
