package kiosk_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/store"
	"github.com/warp/attendance-engine/attendance/storetest"
	"github.com/warp/attendance-engine/checkin"
	"github.com/warp/attendance-engine/directory"
	"github.com/warp/attendance-engine/kiosk"
	"github.com/warp/attendance-engine/logger"
	"github.com/warp/attendance-engine/media"
)

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

// newBackend runs the real router over an in-memory store with one
// employee, EMP001, and the clock at 09:26 on Monday March 4 2024.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()
	_, err := attendance.EnsureDefaultShift(ctx, s)
	require.NoError(t, err)
	now := time.Date(2024, time.March, 4, 9, 26, 0, 0, time.UTC)
	require.NoError(t, s.CreateEmployee(ctx, storetest.Employee("EMP001", "Alice Ahmed", now.Add(-time.Hour))))

	snaps, err := media.NewDiskStore(t.TempDir(), "frame")
	require.NoError(t, err)
	log := logger.Discard()
	svc := checkin.New(s, checkin.Options{
		Location:  time.UTC,
		Snapshots: snaps,
		Log:       log,
		Now:       func() time.Time { return now },
	})
	dir := directory.New(s, nil, time.UTC, log)

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(dir, svc, s, 0, log), api.RouterOptions{}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AgainstBackend(t *testing.T) {
	srv := newBackend(t)
	client := kiosk.NewClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	res, err := client.CheckIn(ctx, "EMP001", jpeg)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Late())
	assert.Equal(t, 21, res.LatenessMinutes)
	assert.Equal(t, "Alice Ahmed late by 21 minutes", res.Message)
	require.NotNil(t, res.SnapshotPath)
	assert.Contains(t, *res.SnapshotPath, "EMP001_20240304_092600")

	_, err = client.CheckIn(ctx, "NOPE", nil)
	var apiErr *kiosk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "employee not found", apiErr.Message)
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	err := kiosk.NewClient(srv.URL, time.Second).Ping(context.Background())
	var apiErr *kiosk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)

	srv.Close()
	err = kiosk.NewClient(srv.URL, time.Second).Ping(context.Background())
	assert.ErrorContains(t, err, "backend unreachable")
}

func TestTerminal_Run(t *testing.T) {
	srv := newBackend(t)
	term := &kiosk.Terminal{
		Client: kiosk.NewClient(srv.URL, time.Second),
		Frames: kiosk.NoFrame{},
		Log:    logger.Discard(),
	}

	var out bytes.Buffer
	err := term.Run(context.Background(), strings.NewReader("EMP001\n\nNOPE\n"), &out)

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Ready. Enter employee code:", lines[0])
	assert.Equal(t, "[LATE] Alice Ahmed late by 21 minutes", lines[1])
	assert.Equal(t, "Please enter Employee Code first.", lines[2])
	assert.Equal(t, "API error: 404 employee not found", lines[3])
}

type brokenCamera struct{}

func (brokenCamera) Capture(context.Context) ([]byte, error) { return nil, io.ErrUnexpectedEOF }

func TestTerminal_CameraError(t *testing.T) {
	term := &kiosk.Terminal{Client: kiosk.NewClient("http://127.0.0.1:0", time.Second), Frames: brokenCamera{}, Log: logger.Discard()}

	var out bytes.Buffer
	require.NoError(t, term.Run(context.Background(), strings.NewReader("EMP001\n"), &out))
	assert.Contains(t, out.String(), "Camera error.")
}

func TestFileFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	require.NoError(t, os.WriteFile(path, jpeg, 0o600))

	data, err := kiosk.FileFrame{Path: path}.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jpeg, data)

	_, err = kiosk.FileFrame{Path: path + ".missing"}.Capture(context.Background())
	assert.Error(t, err)
}

func TestCommandFrame(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	path := filepath.Join(t.TempDir(), "frame.jpg")
	require.NoError(t, os.WriteFile(path, jpeg, 0o600))

	src, err := kiosk.NewCommandFrame("cat "+path, time.Second)
	require.NoError(t, err)
	data, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jpeg, data)

	_, err = kiosk.NewCommandFrame("   ", 0)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	src, err = kiosk.NewCommandFrame("cat "+empty, time.Second)
	require.NoError(t, err)
	_, err = src.Capture(context.Background())
	assert.ErrorContains(t, err, "no frame")
}
