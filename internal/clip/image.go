package clip

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/scenesafe/scenesafe/internal/screen"
)

// CLIP's training normalization constants, per channel.
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// preprocessImage decodes the content, resizes the short side to size,
// center-crops a size x size square and returns normalized CHW pixel data.
// Content is a file path (string), raw encoded bytes, or a decoded image.
func preprocessImage(content screen.Content, size int) ([]float32, error) {
	img, err := decodeContent(content)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image %dx%d", w, h)
	}

	// Scale so the short side lands exactly on size.
	var scaledW, scaledH int
	if w < h {
		scaledW = size
		scaledH = h * size / w
	} else {
		scaledH = size
		scaledW = w * size / h
	}
	offX := (scaledW - size) / 2
	offY := (scaledH - size) / 2

	out := make([]float32, 3*size*size)
	plane := size * size
	for y := 0; y < size; y++ {
		srcY := float64(y+offY) * float64(h) / float64(scaledH)
		for x := 0; x < size; x++ {
			srcX := float64(x+offX) * float64(w) / float64(scaledW)
			r, g, b := bilinearSample(img, srcX, srcY)
			i := y*size + x
			out[i] = (r - clipMean[0]) / clipStd[0]
			out[plane+i] = (g - clipMean[1]) / clipStd[1]
			out[2*plane+i] = (b - clipMean[2]) / clipStd[2]
		}
	}
	return out, nil
}

func decodeContent(content screen.Content) (image.Image, error) {
	switch c := content.(type) {
	case image.Image:
		return c, nil
	case []byte:
		img, _, err := image.Decode(bytes.NewReader(c))
		if err != nil {
			return nil, fmt.Errorf("decode image bytes: %w", err)
		}
		return img, nil
	case string:
		data, err := os.ReadFile(c)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", c, err)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image %s: %w", c, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported content type %T", content)
	}
}

// bilinearSample reads an interpolated pixel, values in [0,1].
func bilinearSample(img image.Image, x, y float64) (r, g, b float32) {
	bounds := img.Bounds()
	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	fx := float32(x - float64(x0))
	fy := float32(y - float64(y0))

	r00, g00, b00 := pixelAt(img, bounds, x0, y0)
	r10, g10, b10 := pixelAt(img, bounds, x1, y0)
	r01, g01, b01 := pixelAt(img, bounds, x0, y1)
	r11, g11, b11 := pixelAt(img, bounds, x1, y1)

	top := [3]float32{
		r00 + (r10-r00)*fx,
		g00 + (g10-g00)*fx,
		b00 + (b10-b00)*fx,
	}
	bottom := [3]float32{
		r01 + (r11-r01)*fx,
		g01 + (g11-g01)*fx,
		b01 + (b11-b01)*fx,
	}
	return top[0] + (bottom[0]-top[0])*fy,
		top[1] + (bottom[1]-top[1])*fy,
		top[2] + (bottom[2]-top[2])*fy
}

// pixelAt reads a pixel by coordinates relative to the image origin,
// clamped to the edges.
func pixelAt(img image.Image, bounds image.Rectangle, x, y int) (float32, float32, float32) {
	x += bounds.Min.X
	y += bounds.Min.Y
	if x < bounds.Min.X {
		x = bounds.Min.X
	}
	if x >= bounds.Max.X {
		x = bounds.Max.X - 1
	}
	if y < bounds.Min.Y {
		y = bounds.Min.Y
	}
	if y >= bounds.Max.Y {
		y = bounds.Max.Y - 1
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return float32(r) / 65535, float32(g) / 65535, float32(b) / 65535
}
