package tray

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"

	"fyne.io/fyne/v2"
)

//go:embed icon.svg
var iconSVG []byte

const iconSize = 32

var (
	iconBlue = color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	iconInk  = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

// Resource is the application icon for fyne windows.
func Resource() fyne.Resource {
	return fyne.NewStaticResource("icon.svg", iconSVG)
}

// iconBytes returns the tray icon in the format the platform tray expects.
func iconBytes() []byte {
	data, err := PNG()
	if err != nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return wrapICO(data, iconSize)
	}
	return data
}

// PNG draws the tray icon: a dashed selection frame with two text lines.
func PNG() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	for x := 4; x < 28; x++ {
		if (x/3)%3 != 2 {
			for _, y := range []int{6, 7, 24, 25} {
				img.SetNRGBA(x, y, iconBlue)
			}
		}
	}
	for y := 6; y < 26; y++ {
		if (y/3)%3 != 2 {
			for _, x := range []int{4, 5, 26, 27} {
				img.SetNRGBA(x, y, iconBlue)
			}
		}
	}
	for x := 9; x < 23; x++ {
		img.SetNRGBA(x, 12, iconInk)
		img.SetNRGBA(x, 13, iconInk)
		if x < 18 {
			img.SetNRGBA(x, 17, iconInk)
			img.SetNRGBA(x, 18, iconInk)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wrapICO puts a PNG image into a single-entry .ico container.
func wrapICO(pngData []byte, size int) []byte {
	const headerLen, entryLen = 6, 16
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	buf.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(pngData)), headerLen + entryLen})
	buf.Write(pngData)
	return buf.Bytes()
}
