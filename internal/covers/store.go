// Package covers persists uploaded book cover images on disk. Only the
// store-generated file name is recorded on the book; the public URL is
// derived from it.
package covers

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	// maxCoverWidth bounds stored covers; wider uploads are downscaled.
	maxCoverWidth = 600
	jpegQuality   = 85
)

// preferredExtensions pins the extension for the common cover types;
// mime.ExtensionsByType orders alternatives alphabetically (".jpe" before
// ".jpg"), which makes for ugly file names.
var preferredExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// extensionFor returns the file extension for a content type, or empty when
// none is known.
func extensionFor(contentType string) string {
	if ext, ok := preferredExtensions[contentType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// Store writes cover files into a single directory under generated names.
type Store struct {
	dir        string
	publicPath string
	allowed    map[string]bool
	maxBytes   int64
}

// NewStore creates the covers directory if needed.
func NewStore(dir, publicPath string, allowedTypes []string, maxUploadMB int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}

	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		if extensionFor(t) == "" {
			return nil, fmt.Errorf("no known file extension for allowed type %q", t)
		}
		allowed[t] = true
	}

	return &Store{
		dir:        dir,
		publicPath: publicPath,
		allowed:    allowed,
		maxBytes:   maxUploadMB << 20,
	}, nil
}

// SaveUpload stores an uploaded image and returns the generated file name.
// The content type is sniffed from the payload, not taken from the client.
// An upload outside the allow-list is dropped: the returned name is empty
// and err is nil, so the book is simply saved without a cover.
func (s *Store) SaveUpload(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("upload exceeds %d bytes", s.maxBytes)
	}

	contentType := http.DetectContentType(data)
	if !s.allowed[contentType] {
		return "", nil
	}

	data = fitWidth(data, contentType)

	name := uuid.NewString() + extensionFor(contentType)
	if err := s.writeAtomic(name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes a stored cover file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PublicURL derives the display path for a stored cover name. Pure; an
// empty name yields an empty URL.
func (s *Store) PublicURL(name string) string {
	if name == "" {
		return ""
	}
	return path.Join(s.publicPath, path.Base(name))
}

// RemoveOrphans deletes files in the covers directory that are not in the
// referenced set. Returns the number of files removed.
func (s *Store) RemoveOrphans(referenced map[string]struct{}) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := referenced[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Dir returns the covers directory path.
func (s *Store) Dir() string {
	return s.dir
}

// PublicPath returns the URL prefix covers are served under.
func (s *Store) PublicPath() string {
	return s.publicPath
}

// writeAtomic writes through a temp file in the same directory and renames,
// so a partially written cover is never served.
func (s *Store) writeAtomic(name string, data []byte) error {
	tmpFile, err := os.CreateTemp(s.dir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	tmpFile.Close()

	return os.Rename(tmpPath, filepath.Join(s.dir, name))
}

// fitWidth downscales an image wider than maxCoverWidth, re-encoding in the
// original format. GIFs are stored untouched to preserve animation. Payloads
// that fail to decode are stored as received.
func fitWidth(data []byte, contentType string) []byte {
	if contentType == "image/gif" {
		return data
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxCoverWidth {
		return data
	}

	newH := h * maxCoverWidth / w
	dst := image.NewRGBA(image.Rect(0, 0, maxCoverWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return data
	}
	return buf.Bytes()
}
