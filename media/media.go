/*
Package media stores employee photos and check-in snapshots on disk.

PURPOSE:
  Uploaded bytes are checked by their magic bytes, never by the file name
  or the client-declared Content-Type. Only still images are accepted.

NAMING:
  <code>_<YYYYMMDD_HHMMSS>.<ext>     e.g. EMP001_20240304_090600.jpg

  The code is reduced to [A-Za-z0-9_-]. When two uploads for the same code
  land in the same second, the second file gets a short random suffix
  instead of overwriting the first.
*/
package media

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/attendance-engine/attendance"
)

// allowedTypes maps detected content types to file extensions.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// DetectImage sniffs the content type of data. It returns a ValidationError
// for anything that is not an accepted image format.
func DetectImage(field string, data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", attendance.Invalid(field, "is empty")
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	contentType = strings.ToLower(strings.Split(http.DetectContentType(head), ";")[0])
	ext, ok := allowedTypes[contentType]
	if !ok {
		return contentType, "", attendance.Invalid(field, "detected content type %q is not an accepted image", contentType)
	}
	return contentType, ext, nil
}

// DiskStore writes images below Root.
type DiskStore struct {
	Root  string
	Field string // form field name reported in validation errors
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root, field string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", root, err)
	}
	return &DiskStore{Root: root, Field: field}, nil
}

// Save validates data and writes it as <code>_<timestamp>.<ext>. The
// returned path is Root joined with the file name.
func (d *DiskStore) Save(code string, at time.Time, data []byte) (string, error) {
	_, ext, err := DetectImage(d.Field, data)
	if err != nil {
		return "", err
	}

	base := SanitizeCode(code) + "_" + at.Format("20060102_150405")
	path := filepath.Join(d.Root, base+ext)

	err = writeExclusive(path, data)
	if errors.Is(err, fs.ErrExist) {
		path = filepath.Join(d.Root, base+"_"+uuid.NewString()[:8]+ext)
		err = writeExclusive(path, data)
	}
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return path, nil
}

// Remove deletes a previously saved file. Missing files are ignored.
func (d *DiskStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// SanitizeCode keeps letters, digits, '-' and '_'.
func SanitizeCode(code string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(code) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
