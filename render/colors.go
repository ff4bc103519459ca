package render

import (
	"image/color"

	"github.com/swdee/go-posematch"
)

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Blue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Green  = color.RGBA{R: 51, G: 255, B: 51, A: 255}
	Grey   = color.RGBA{R: 160, G: 160, B: 160, A: 255}

	// Transparent is used to clear overlay regions
	Transparent = color.RGBA{}

	// posePalette are the colors used for the skeleton joints
	posePalette = []color.RGBA{
		{R: 255, G: 128, B: 0, A: 255},
		{R: 51, G: 153, B: 255, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
	}

	// partColors are the joint colors indexed by posematch.Part, face is
	// green, arms and shoulders blue, hips and legs orange
	partColors = [posematch.PartCount]color.RGBA{
		posePalette[2], posePalette[2], posePalette[2], posePalette[2], posePalette[2],
		posePalette[1], posePalette[1], posePalette[1], posePalette[1], posePalette[1],
		posePalette[1], posePalette[0], posePalette[0], posePalette[0], posePalette[0],
		posePalette[0], posePalette[0],
	}

	// gradeColors are the label colors for each alignment grade
	gradeColors = map[posematch.Grade]color.RGBA{
		posematch.GradeNone:    Grey,
		posematch.GradeFar:     Red,
		posematch.GradeClose:   Yellow,
		posematch.GradeAligned: Green,
	}
)

// PartColor returns the joint color for a body part
func PartColor(p posematch.Part) color.RGBA {
	if !p.Valid() {
		return White
	}

	return partColors[p]
}

// GradeColor returns the feedback color for an alignment grade
func GradeColor(g posematch.Grade) color.RGBA {
	if c, ok := gradeColors[g]; ok {
		return c
	}

	return Grey
}
