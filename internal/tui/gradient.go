package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// applyGradient colors a multi-line string with a vertical gradient.
func applyGradient(text, startHex, endHex string) string {
	lines := strings.Split(text, "\n")
	height := len(lines)
	if height == 0 {
		return text
	}

	start, _ := hexToRGB(startHex)
	end, _ := hexToRGB(endHex)

	colored := make([]string, 0, height)
	for i, line := range lines {
		t := 0.0
		if height > 1 {
			t = float64(i) / float64(height-1)
		}

		r := uint8(math.Round(lerp(float64(start.r), float64(end.r), t)))
		g := uint8(math.Round(lerp(float64(start.g), float64(end.g), t)))
		b := uint8(math.Round(lerp(float64(start.b), float64(end.b), t)))

		color := lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b))
		colored = append(colored, lipgloss.NewStyle().Foreground(color).Bold(true).Render(line))
	}

	return strings.Join(colored, "\n")
}

type rgb struct {
	r, g, b uint8
}

func hexToRGB(hex string) (rgb, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return rgb{}, fmt.Errorf("invalid hex color: %s", hex)
	}

	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return rgb{}, err
	}
	return rgb{
		r: uint8(val >> 16),
		g: uint8((val >> 8) & 0xFF),
		b: uint8(val & 0xFF),
	}, nil
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
