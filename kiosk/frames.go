package kiosk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// FrameSource produces one JPEG (or PNG) frame per check-in.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// NoFrame checks in without a snapshot.
type NoFrame struct{}

func (NoFrame) Capture(context.Context) ([]byte, error) { return nil, nil }

// FileFrame re-reads a file on every capture, e.g. one a webcam daemon
// keeps overwriting.
type FileFrame struct {
	Path string
}

func (f FileFrame) Capture(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return data, nil
}

// CommandFrame runs a capture command and takes its stdout as the frame,
// e.g. "fswebcam --no-banner -" or
// "ffmpeg -loglevel error -f v4l2 -i /dev/video0 -frames:v 1 -f image2 -".
type CommandFrame struct {
	Name    string
	Args    []string
	Timeout time.Duration
}

func NewCommandFrame(commandLine string, timeout time.Duration) (*CommandFrame, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, errors.New("empty capture command")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CommandFrame{Name: fields[0], Args: fields[1:], Timeout: timeout}, nil
}

func (c *CommandFrame) Capture(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("capture command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("capture command produced no frame")
	}
	return stdout.Bytes(), nil
}
