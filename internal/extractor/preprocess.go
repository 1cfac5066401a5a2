package extractor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/tupi-labs/ponto/internal/domain"
)

// decodeFrame decodes JPEG/PNG bytes into an image.
func decodeFrame(frame []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	return img, nil
}

// toCHW resizes img to w x h and lays it out as normalized CHW float32,
// the input format both the detector and the embedder expect.
// Values are scaled to [-1, 1] per channel ((v/255 - 0.5) / 0.5).
func toCHW(img image.Image, w, h int) []float32 {
	resized := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), xdraw.Over, nil)

	out := make([]float32, 3*w*h)
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := resized.PixOffset(x, y)
			r := resized.Pix[i]
			g := resized.Pix[i+1]
			b := resized.Pix[i+2]
			idx := y*w + x
			out[idx] = (float32(r)/255.0 - 0.5) / 0.5
			out[plane+idx] = (float32(g)/255.0 - 0.5) / 0.5
			out[2*plane+idx] = (float32(b)/255.0 - 0.5) / 0.5
		}
	}
	return out
}

// grayCrop cuts the face rectangle out of img and returns it as a
// CropSize x CropSize grayscale image for texture analysis.
func grayCrop(img image.Image, rect image.Rectangle) (*image.Gray, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("face rectangle outside image bounds")
	}

	cropped := image.NewRGBA(image.Rect(0, 0, CropSize, CropSize))
	xdraw.BiLinear.Scale(cropped, cropped.Bounds(), img, rect, xdraw.Over, nil)

	gray := image.NewGray(cropped.Bounds())
	for y := 0; y < CropSize; y++ {
		for x := 0; x < CropSize; x++ {
			i := cropped.PixOffset(x, y)
			r := cropped.Pix[i]
			g := cropped.Pix[i+1]
			b := cropped.Pix[i+2]
			// ITU-R BT.601 luma
			luma := (299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000
			gray.SetGray(x, y, color.Gray{Y: uint8(luma)})
		}
	}
	return gray, nil
}
