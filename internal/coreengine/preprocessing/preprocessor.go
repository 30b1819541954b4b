package preprocessing

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

// PreprocessError reports a corrupt or unreadable input image. It is a
// validation failure: recoverable, surfaced to the caller, no state left
// behind.
type PreprocessError struct {
	Path string
	Err  error
}

func (e *PreprocessError) Error() string {
	return fmt.Sprintf("cannot preprocess image %s: %v", e.Path, e.Err)
}

func (e *PreprocessError) Unwrap() error { return e.Err }

// DefaultTargetSize matches the input resolution the model was trained on.
const DefaultTargetSize = 224

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// ImagePreprocessor normalizes images to the fixed tensor layout the
// classifier expects: planar RGB float32, TargetSize x TargetSize, values
// in [0,1]. It is stateless and safe for concurrent use.
type ImagePreprocessor struct {
	TargetSize int
}

// NewImagePreprocessor returns a preprocessor for the given square target
// size; non-positive sizes fall back to DefaultTargetSize.
func NewImagePreprocessor(targetSize int) *ImagePreprocessor {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	return &ImagePreprocessor{TargetSize: targetSize}
}

// ValidateFormat reports whether path looks like a supported image: the
// extension must be on the allow-list and the file header must decode.
// BMP is on the allow-list but has no registered decoder, so it passes
// here on extension alone and Preprocess surfaces the decode failure.
func (p *ImagePreprocessor) ValidateFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return ext == ".bmp"
	}
	return true
}

// Preprocess decodes, resizes and normalizes the image at path into the
// planar RGB tensor the classifier consumes.
func (p *ImagePreprocessor) Preprocess(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PreprocessError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &PreprocessError{Path: path, Err: err}
	}

	size := uint(p.TargetSize)
	resized := resize.Resize(size, size, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]float32, 3*width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			idx := y*width + x
			data[idx] = float32(r) / 65535.0
			data[width*height+idx] = float32(g) / 65535.0
			data[2*width*height+idx] = float32(b) / 65535.0
		}
	}

	return data, nil
}

// InputLength returns the tensor length Preprocess produces.
func (p *ImagePreprocessor) InputLength() int {
	return 3 * p.TargetSize * p.TargetSize
}
