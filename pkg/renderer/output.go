package renderer

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Upscale enlarges img by an integer factor with nearest-neighbour sampling
// so individual traced pixels stay sharp. Factors below 2 return img unchanged.
func Upscale(img image.Image, factor int) image.Image {
	if factor < 2 {
		return img
	}
	b := img.Bounds()
	return imaging.Resize(img, b.Dx()*factor, b.Dy()*factor, imaging.NearestNeighbor)
}

// EncodeImage writes img to w in the named format (png, jpg, gif, tif or bmp)
// after upscaling by factor.
func EncodeImage(w io.Writer, img image.Image, format string, factor int) error {
	f, err := imaging.FormatFromExtension(strings.TrimPrefix(format, "."))
	if err != nil {
		return fmt.Errorf("unsupported image format %q: %w", format, err)
	}
	if err := imaging.Encode(w, Upscale(img, factor), f); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// SaveImage writes img to path, choosing the format from the extension and
// creating the parent directory if needed.
func SaveImage(img image.Image, path string, factor int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imaging.Save(Upscale(img, factor), path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
