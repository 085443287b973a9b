// Package imagex derives resized copies of uploaded images.
package imagex

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrUndecodable is wrapped by errors about source bytes that are not a
// readable image. Retrying them cannot succeed.
var ErrUndecodable = errors.New("undecodable image")

// Thumbnail scales the encoded image in data to width pixels, keeping the
// aspect ratio, and re-encodes it in the source format. Formats imaging
// cannot write are encoded as PNG.
func Thumbnail(data []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid thumbnail width %d", width)
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", ErrUndecodable, err)
	}
	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		format = imaging.PNG
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	thumb := imaging.Resize(img, width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
