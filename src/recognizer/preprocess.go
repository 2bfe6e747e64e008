package recognizer

import (
	"image"

	"golang.org/x/image/draw"
)

// Preprocess returns an RGBA copy of img with a fixed linear contrast boost:
// each color channel maps to (v-128)*(1+contrast)+128, clamped. Alpha is kept.
func Preprocess(img image.Image, contrast float64) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	if contrast == 0 {
		return dst
	}

	lut := contrastTable(contrast)
	for y := 0; y < dst.Rect.Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+dst.Rect.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			row[i] = lut[row[i]]
			row[i+1] = lut[row[i+1]]
			row[i+2] = lut[row[i+2]]
		}
	}
	return dst
}

func contrastTable(contrast float64) [256]uint8 {
	var t [256]uint8
	scale := 1 + contrast
	for v := 0; v < 256; v++ {
		x := (float64(v)-128)*scale + 128
		switch {
		case x < 0:
			x = 0
		case x > 255:
			x = 255
		}
		t[v] = uint8(x + 0.5)
	}
	return t
}
