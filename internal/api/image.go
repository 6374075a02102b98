package api

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

const maxImageWidth = 1024

// prepareImage downscales oversized uploads before they are sent to the
// model and returns the data with its wire format ("jpeg" or "png"). Images
// that fail to decode pass through unchanged; the model gets a shot at them.
func prepareImage(data []byte, extension string) ([]byte, string) {
	format := "jpeg"
	if extension == ".png" {
		format = "png"
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, format
	}
	if img.Bounds().Dx() <= maxImageWidth {
		return data, format
	}

	img = resize.Resize(maxImageWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		return data, format
	}
	return buf.Bytes(), format
}
