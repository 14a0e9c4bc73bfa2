// Package imageprep downscales product images before they are uploaded to the API.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"storefront/internal/apiclient"

	"github.com/nfnt/resize"
)

// MaxWidth is the widest image that is uploaded unchanged.
const MaxWidth = 1200

// ErrUnsupportedFormat is returned for files that are not PNG or JPEG.
var ErrUnsupportedFormat = errors.New("unsupported image format, only PNG, JPG and JPEG are allowed")

// Prepare decodes an uploaded image, narrows it to maxWidth preserving the aspect
// ratio, and re-encodes it as JPEG. The returned file has no form field set.
func Prepare(name string, content []byte, maxWidth uint) (apiclient.File, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var (
		img image.Image
		err error
	)
	switch ext {
	case ".png":
		img, err = png.Decode(bytes.NewReader(content))
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(bytes.NewReader(content))
	default:
		return apiclient.File{}, ErrUnsupportedFormat
	}
	if err != nil {
		return apiclient.File{}, fmt.Errorf("failed to decode image %s: %w", name, err)
	}

	if uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return apiclient.File{}, fmt.Errorf("failed to encode image %s: %w", name, err)
	}

	return apiclient.File{
		Name:        strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + ".jpg",
		ContentType: "image/jpeg",
		Content:     buf.Bytes(),
	}, nil
}
