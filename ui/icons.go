package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/ngtracker/ngt-desktop/common"
)

// IconConfig defines the colours of a tray badge.
type IconConfig struct {
	Size        int
	FillColor   color.RGBA
	BorderColor color.RGBA
	TruckColor  color.RGBA
}

// ConnectedIconConfig is used while the game feed is connected.
func ConnectedIconConfig() IconConfig {
	return IconConfig{
		Size:        common.TrayIconSize,
		FillColor:   color.RGBA{25, 118, 210, 255},
		BorderColor: color.RGBA{66, 165, 245, 255},
		TruckColor:  color.RGBA{255, 255, 255, 255},
	}
}

// DisconnectedIconConfig is used while the game is not running.
func DisconnectedIconConfig() IconConfig {
	return IconConfig{
		Size:        common.TrayIconSize,
		FillColor:   color.RGBA{117, 117, 117, 255},
		BorderColor: color.RGBA{158, 158, 158, 255},
		TruckColor:  color.RGBA{224, 224, 224, 255},
	}
}

// IconGenerator draws a round badge with a truck on it.
type IconGenerator struct {
	config IconConfig
}

// NewIconGenerator creates a new icon generator with the given config.
func NewIconGenerator(config IconConfig) *IconGenerator {
	return &IconGenerator{config: config}
}

// Generate creates a PNG icon and returns the bytes.
func (g *IconGenerator) Generate() []byte {
	size := g.config.Size
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	g.drawBadge(img)
	g.drawTruck(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		common.LogWarn("Failed to encode tray icon: %v", err)
		return nil
	}
	return buf.Bytes()
}

func (g *IconGenerator) drawBadge(img *image.RGBA) {
	size := float64(g.config.Size)
	center := size / 2
	radius := size/2 - 0.5

	for y := 0; y < g.config.Size; y++ {
		for x := 0; x < g.config.Size; x++ {
			d := math.Hypot(float64(x)+0.5-center, float64(y)+0.5-center)
			switch {
			case d > radius:
			case d > radius-1.5:
				img.Set(x, y, g.config.BorderColor)
			default:
				img.Set(x, y, g.config.FillColor)
			}
		}
	}
}

// drawTruck draws a cab and trailer scaled to the icon size.
func (g *IconGenerator) drawTruck(img *image.RGBA) {
	s := float64(g.config.Size) / 22
	fill := func(x0, y0, x1, y1 float64) {
		for y := int(y0 * s); y <= int(y1*s); y++ {
			for x := int(x0 * s); x <= int(x1*s); x++ {
				img.Set(x, y, g.config.TruckColor)
			}
		}
	}

	// trailer
	fill(4, 7, 12, 13)
	// cab
	fill(13, 9, 17, 13)
	// wheels
	fill(5, 14, 6, 15)
	fill(10, 14, 11, 15)
	fill(15, 14, 16, 15)

	// windscreen
	w := g.config.FillColor
	for y := int(10 * s); y <= int(11*s); y++ {
		for x := int(15 * s); x <= int(16*s); x++ {
			img.Set(x, y, w)
		}
	}
}

// GenerateConnectedIcon generates the connected state icon.
func GenerateConnectedIcon() []byte {
	return NewIconGenerator(ConnectedIconConfig()).Generate()
}

// GenerateDisconnectedIcon generates the disconnected state icon.
func GenerateDisconnectedIcon() []byte {
	return NewIconGenerator(DisconnectedIconConfig()).Generate()
}
