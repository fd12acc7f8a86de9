package rimage

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Colors used on the debug overlay.
var (
	TargetColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	LabelColor  = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
)

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font used for overlay text.
func Font() *truetype.Font {
	return font
}

// DrawString writes text with its top left corner at p.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, gg.AlignLeft)
}

// DrawRectangleEmpty strokes the outline of r.
func DrawRectangleEmpty(dc *gg.Context, r image.Rectangle, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}

// Overlay returns a copy of img with every box outlined and, if label is not empty, the label
// written in the top left corner. img itself is not modified. Boxes are in the coordinates of an
// image whose bounds start at 0,0, which is what every camera.Source produces.
func Overlay(img image.Image, boxes []image.Rectangle, label string) image.Image {
	dc := gg.NewContextForImage(img)
	for _, b := range boxes {
		DrawRectangleEmpty(dc, b, TargetColor, 2)
	}
	if label != "" {
		DrawString(dc, label, image.Point{X: 5, Y: 5}, LabelColor, 16)
	}
	return dc.Image()
}
