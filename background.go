package lessonplanner

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	backgroundWidth  = 1920
	backgroundHeight = 1080
)

// NormalizeBackground decodes an uploaded data URI image and returns a 1920x1080 PNG.
// The source is scaled to cover the frame and cropped around its centre.
func NormalizeBackground(dataURI string) ([]byte, error) {
	_, data, err := ParseDataURI(dataURI)
	if err != nil {
		return nil, err
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode background image: %w", err)
	}
	VerboseLog("NormalizeBackground: decoded %s %dx%d", format, src.Bounds().Dx(), src.Bounds().Dy())

	crop := coverRect(src.Bounds(), backgroundWidth, backgroundHeight)
	dst := image.NewRGBA(image.Rect(0, 0, backgroundWidth, backgroundHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode background image: %w", err)
	}
	return buf.Bytes(), nil
}

// coverRect returns the largest centred region of b with the w:h aspect ratio
func coverRect(b image.Rectangle, w, h int) image.Rectangle {
	sw, sh := b.Dx(), b.Dy()
	if sw*h > sh*w {
		cw := sh * w / h
		x0 := b.Min.X + (sw-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := sw * h / w
	y0 := b.Min.Y + (sh-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}
