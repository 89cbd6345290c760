package kiosk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Terminal reads one employee code per line and checks it in.
type Terminal struct {
	Client *Client
	Frames FrameSource
	Log    *slog.Logger
}

// Run loops until in is exhausted or ctx is done. Per-line failures are
// printed and do not stop the loop.
func (t *Terminal) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if t.Frames == nil {
		t.Frames = NoFrame{}
	}
	if t.Log == nil {
		t.Log = slog.Default()
	}

	fmt.Fprintln(out, "Ready. Enter employee code:")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := strings.TrimSpace(scanner.Text())
		if code == "" {
			fmt.Fprintln(out, "Please enter Employee Code first.")
			continue
		}
		fmt.Fprintln(out, t.checkIn(ctx, code))
	}
	return scanner.Err()
}

func (t *Terminal) checkIn(ctx context.Context, code string) string {
	frame, err := t.Frames.Capture(ctx)
	if err != nil {
		t.Log.Warn("frame capture failed", "error", err)
		return "Camera error."
	}

	res, err := t.Client.CheckIn(ctx, code, frame)
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case err != nil:
		return "Error: " + err.Error()
	case res.Late():
		return "[LATE] " + res.Message
	default:
		return "[OK] " + res.Message
	}
}
