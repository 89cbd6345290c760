package media_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/media"
)

// Smallest byte prefixes http.DetectContentType recognises.
var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
)

func TestDetectImage(t *testing.T) {
	ct, ext, err := media.DetectImage("photo", jpegBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, ".jpg", ext)

	_, ext, err = media.DetectImage("photo", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	_, _, err = media.DetectImage("photo", []byte("#!/bin/sh\nrm -rf /\n"))
	assert.ErrorIs(t, err, attendance.ErrInvalidInput)

	_, _, err = media.DetectImage("photo", nil)
	var verr *attendance.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "photo", verr.Field)
}

func TestDiskStore_SaveNamesAndCollisions(t *testing.T) {
	// GIVEN: A snapshot store and two frames in the same second
	store, err := media.NewDiskStore(filepath.Join(t.TempDir(), "snapshots"), "frame")
	require.NoError(t, err)
	at := time.Date(2024, time.March, 4, 9, 6, 0, 0, time.UTC)

	first, err := store.Save("EMP001", at, jpegBytes)
	require.NoError(t, err)
	second, err := store.Save("EMP001", at, jpegBytes)
	require.NoError(t, err)

	// THEN: The first keeps the canonical name and the second does not overwrite it
	assert.Equal(t, "EMP001_20240304_090600.jpg", filepath.Base(first))
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^EMP001_20240304_090600_[0-9a-f]{8}\.jpg$`, filepath.Base(second))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, data)

	require.NoError(t, store.Remove(second))
	_, err = os.Stat(second)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove(second), "removing twice is fine")
}

func TestDiskStore_RejectsNonImages(t *testing.T) {
	dir := t.TempDir()
	store, err := media.NewDiskStore(dir, "photo")
	require.NoError(t, err)

	_, err = store.Save("EMP001", time.Now(), []byte("plain text, not a picture"))
	assert.ErrorIs(t, err, attendance.ErrInvalidInput)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeCode(t *testing.T) {
	assert.Equal(t, "EMP-001_a", media.SanitizeCode("EMP-001_a"))
	assert.Equal(t, "___etc_passwd", media.SanitizeCode("../etc/passwd"))
	assert.Equal(t, "unknown", media.SanitizeCode("   "))
}
