package chart

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

var (
	colorAxis  = color.NRGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
	colorText  = color.NRGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	colorGrid  = color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	colorsBars = []color.NRGBA{
		{R: 0x4e, G: 0x79, B: 0xa7, A: 0xff},
		{R: 0xf2, G: 0x8e, B: 0x2b, A: 0xff},
		{R: 0x59, G: 0xa1, B: 0x4f, A: 0xff},
		{R: 0xe1, G: 0x57, B: 0x59, A: 0xff},
		{R: 0x76, G: 0xb7, B: 0xb2, A: 0xff},
	}
)

const (
	marginLeft   = 48
	marginRight  = 16
	marginTop    = 36
	marginBottom = 40
	gridLines    = 4
)

// drawBars renders a labelled bar chart. Values below zero are drawn as zero.
func drawBars(title string, data []domain.SubjectStat, width, height int) image.Image {
	img := imaging.New(width, height, color.White)
	face := basicfont.Face7x13

	plot := image.Rect(marginLeft, marginTop, width-marginRight, height-marginBottom)

	maxV := 0.0
	for _, d := range data {
		maxV = max(maxV, d.Value)
	}
	if maxV <= 0 {
		maxV = 1
	}

	for i := 0; i <= gridLines; i++ {
		y := plot.Max.Y - i*plot.Dy()/gridLines
		fill(img, image.Rect(plot.Min.X, y, plot.Max.X, y+1), colorGrid)
		label := formatValue(maxV * float64(i) / gridLines)
		text(img, face, plot.Min.X-4-textWidth(face, label), y+4, label)
	}

	fill(img, image.Rect(plot.Min.X, plot.Min.Y, plot.Min.X+1, plot.Max.Y+1), colorAxis)
	fill(img, image.Rect(plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y+1), colorAxis)

	slot := plot.Dx() / max(len(data), 1)
	barW := max(slot*3/5, 1)
	for i, d := range data {
		v := max(d.Value, 0)
		h := int(float64(plot.Dy()) * v / maxV)
		x0 := plot.Min.X + i*slot + (slot-barW)/2
		bar := image.Rect(x0, plot.Max.Y-h, x0+barW, plot.Max.Y)
		fill(img, bar, colorsBars[i%len(colorsBars)])

		val := formatValue(d.Value)
		text(img, face, x0+(barW-textWidth(face, val))/2, bar.Min.Y-3, val)

		name := truncate(face, d.Subject, slot-2)
		text(img, face, plot.Min.X+i*slot+(slot-textWidth(face, name))/2, plot.Max.Y+16, name)
	}

	text(img, face, (width-textWidth(face, title))/2, marginTop/2+4, title)
	return img
}

// pieLayout places the pie in the left part of the canvas and leaves the
// rest for the legend.
func pieLayout(width, height int) (center image.Point, radius int) {
	legend := width / 3
	side := min(width-legend-marginRight, height-marginTop-marginRight)
	radius = max(side/2, 1)
	return image.Pt(marginRight+radius, marginTop+radius), radius
}

// drawPie renders each value as a share of the total, clockwise from twelve
// o'clock, with a legend of names and percentages. Values below zero count
// as zero.
func drawPie(title string, data []domain.SubjectStat, width, height int) image.Image {
	img := imaging.New(width, height, color.White)
	face := basicfont.Face7x13

	total := 0.0
	for _, d := range data {
		total += max(d.Value, 0)
	}
	if total <= 0 {
		total = 1
	}

	// bounds[i] is the angle where slice i ends.
	bounds := make([]float64, len(data))
	acc := 0.0
	for i, d := range data {
		acc += max(d.Value, 0) / total * 2 * math.Pi
		bounds[i] = acc
	}

	center, r := pieLayout(width, height)
	for y := center.Y - r; y <= center.Y+r; y++ {
		for x := center.X - r; x <= center.X+r; x++ {
			dx, dy := float64(x-center.X), float64(y-center.Y)
			if dx*dx+dy*dy > float64(r*r) {
				continue
			}
			if i := sliceAt(bounds, pieAngle(dx, dy)); i >= 0 {
				img.Set(x, y, colorsBars[i%len(colorsBars)])
			}
		}
	}

	lx := center.X + r + 24
	for i, d := range data {
		y := marginTop + i*18
		fill(img, image.Rect(lx, y, lx+10, y+10), colorsBars[i%len(colorsBars)])
		share := fmt.Sprintf(" %.1f%%", max(d.Value, 0)/total*100)
		name := truncate(face, d.Subject, width-lx-16-textWidth(face, share)-marginRight)
		text(img, face, lx+16, y+10, name+share)
	}

	text(img, face, (width-textWidth(face, title))/2, marginTop/2+4, title)
	return img
}

// pieAngle is the clockwise angle from twelve o'clock in [0, 2π).
func pieAngle(dx, dy float64) float64 {
	a := math.Atan2(dx, -dy)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func sliceAt(bounds []float64, angle float64) int {
	for i, b := range bounds {
		if angle < b {
			return i
		}
	}
	return -1
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func text(dst draw.Image, face font.Face, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(colorText),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

func truncate(face font.Face, s string, maxWidth int) string {
	if textWidth(face, s) <= maxWidth {
		return s
	}
	r := []rune(s)
	for len(r) > 1 {
		r = r[:len(r)-1]
		if cand := string(r) + "."; textWidth(face, cand) <= maxWidth {
			return cand
		}
	}
	return string(r)
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%.1f", v)
}
