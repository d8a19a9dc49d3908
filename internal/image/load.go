package image

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeError reports an input file that could not be read or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports an output file that could not be encoded or written.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Load decodes the image at path. PNG, JPEG, GIF, TIFF, BMP and WebP are
// recognised by content.
func Load(path string) (*Image, error) {
	return LoadMax(path, 0)
}

// LoadMax decodes the image at path and, when maxDim is positive and the
// larger side exceeds it, shrinks it to fit maxDim x maxDim preserving the
// aspect ratio.
func LoadMax(path string, maxDim int) (*Image, error) {
	src, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	if maxDim > 0 && (b.Dx() > maxDim || b.Dy() > maxDim) {
		src = resize.Thumbnail(uint(maxDim), uint(maxDim), src, resize.Bilinear)
	}
	return FromGo(src), nil
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

// Save encodes img to path. The format follows the file extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	return nil
}
