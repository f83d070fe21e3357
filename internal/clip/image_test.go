package clip

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func grayImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestPreprocessImage_ShapeAndNormalization(t *testing.T) {
	const size = 4
	pixels, err := preprocessImage(grayImage(10, 20), size)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if len(pixels) != 3*size*size {
		t.Fatalf("expected %d values, got %d", 3*size*size, len(pixels))
	}

	// Uniform gray 128/255 must land on (v-mean)/std per channel everywhere.
	gray := float32(128*257) / 65535
	plane := size * size
	for ch := 0; ch < 3; ch++ {
		want := (gray - clipMean[ch]) / clipStd[ch]
		for i := 0; i < plane; i++ {
			got := pixels[ch*plane+i]
			if math.Abs(float64(got-want)) > 1e-4 {
				t.Fatalf("channel %d index %d: expected %v, got %v", ch, i, want, got)
			}
		}
	}
}

func TestPreprocessImage_NonZeroOrigin(t *testing.T) {
	base := grayImage(30, 30)
	sub, ok := base.SubImage(image.Rect(10, 10, 20, 20)).(*image.RGBA)
	if !ok {
		t.Fatalf("sub-image type assertion failed")
	}
	if _, err := preprocessImage(sub, 4); err != nil {
		t.Fatalf("preprocess sub-image: %v", err)
	}
}

func TestDecodeContent_UnsupportedType(t *testing.T) {
	if _, err := decodeContent(42); err == nil {
		t.Fatalf("expected error for unsupported content type")
	}
}

func TestNormalizedAndCosine(t *testing.T) {
	v := normalized([]float32{3, 4})
	if math.Abs(float64(v[0]-0.6)) > 1e-6 || math.Abs(float64(v[1]-0.8)) > 1e-6 {
		t.Fatalf("expected unit vector [0.6 0.8], got %v", v)
	}
	if got := cosine(v, v); math.Abs(float64(got-1)) > 1e-6 {
		t.Fatalf("cosine of a unit vector with itself must be 1, got %v", got)
	}
	if got := cosine(normalized([]float32{1, 0}), normalized([]float32{0, 1})); got != 0 {
		t.Fatalf("orthogonal vectors must score 0, got %v", got)
	}
}
