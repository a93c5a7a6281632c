// Package filemgr stores listing images under the upload directory and
// generates their thumbnails.
package filemgr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// Saved names a stored image and its thumbnail, both relative to the
// upload root (e.g. "listing/photo/<uuid>.jpg").
type Saved struct {
	Image string
	Thumb string
}

type Manager struct {
	Root    string
	Entity  string
	MaxSize int64
}

func New(root, entity string) *Manager {
	return &Manager{Root: root, Entity: entity, MaxSize: DefaultMaxSize}
}

func (m *Manager) dir(picType PictureType) string {
	sub := PictureSubfolders[picType]
	if sub == "" {
		sub = "misc"
	}
	return filepath.Join(strings.ToLower(m.Entity), sub)
}

// SaveFormImage reads field from a parsed multipart form. A missing field
// is not an error and yields the zero Saved.
func (m *Manager) SaveFormImage(form *multipart.Form, field string) (Saved, error) {
	if form == nil || len(form.File[field]) == 0 {
		return Saved{}, nil
	}
	header := form.File[field][0]
	file, err := header.Open()
	if err != nil {
		return Saved{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	return m.SaveImage(file, header)
}

// SaveImage validates an uploaded image, re-encodes it as JPEG (which drops
// EXIF data) and writes a thumbnail next to it.
func (m *Manager) SaveImage(r io.Reader, header *multipart.FileHeader) (Saved, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(AllowedExtensions[PicPhoto], ext) {
		return Saved{}, fmt.Errorf("%w: %s", ErrInvalidExtension, ext)
	}

	max := m.MaxSize
	if max <= 0 {
		max = DefaultMaxSize
	}
	buf, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return Saved{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(buf)) > max {
		return Saved{}, ErrFileTooLarge
	}

	mimeType := http.DetectContentType(buf)
	if mimeType == "application/octet-stream" {
		if formMime := header.Header.Get("Content-Type"); formMime != "" {
			mimeType = formMime
		}
	}
	if !slices.Contains(AllowedMIMEs[PicPhoto], mimeType) {
		return Saved{}, fmt.Errorf("%w: %s", ErrInvalidMIME, mimeType)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return Saved{}, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	name := uuid.New().String() + ".jpg"
	imagePath := filepath.Join(m.dir(PicPhoto), name)
	if err := m.writeJPEG(imagePath, img, 90); err != nil {
		return Saved{}, err
	}

	thumbPath := filepath.Join(m.dir(PicThumb), name)
	if err := m.writeJPEG(thumbPath, imaging.Resize(img, thumbWidth, 0, imaging.Lanczos), 80); err != nil {
		// The image itself is usable without a thumbnail.
		log.Printf("[filemgr] thumbnail for %s: %v", imagePath, err)
		thumbPath = ""
	}

	b := img.Bounds()
	log.Debug().Str("path", imagePath).Int("width", b.Dx()).Int("height", b.Dy()).Msg("image saved")
	return Saved{Image: filepath.ToSlash(imagePath), Thumb: filepath.ToSlash(thumbPath)}, nil
}

func (m *Manager) writeJPEG(rel string, img image.Image, quality int) error {
	full := filepath.Join(m.Root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(full), err)
	}
	out, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create %s: %w", full, err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode %s: %w", full, err)
	}
	return nil
}

// Remove deletes stored files by their relative names. Missing files are ignored.
func (m *Manager) Remove(names ...string) {
	if m == nil {
		return
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		full := filepath.Join(m.Root, filepath.FromSlash(n))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			log.Printf("[filemgr] remove %s: %v", full, err)
		}
	}
}
