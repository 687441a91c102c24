package gallery

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	maxWidth   = 1920
	thumbWidth = 300
	jpegQ      = 85
)

// normalize decodes an upload, applies its EXIF orientation and bounds it
// to maxWidth. Re-encoding afterwards drops the original metadata.
func normalize(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	return img, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQ)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func saveThumbnail(img image.Image, dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	path := filepath.Join(dir, name)
	if err := imaging.Save(thumb, path, imaging.JPEGQuality(jpegQ)); err != nil {
		return fmt.Errorf("save thumbnail %s: %w", path, err)
	}
	return nil
}
