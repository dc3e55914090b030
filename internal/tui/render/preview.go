package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xdraw "golang.org/x/image/draw"
)

// upperHalf paints the top pixel as foreground and the bottom one as background,
// so each terminal cell shows two vertically stacked pixels.
const upperHalf = "▀"

// PreviewSize fits a w x h image into cols x rows cells, two pixels per cell row.
func PreviewSize(w, h, cols, rows int) (int, int) {
	if w <= 0 || h <= 0 || cols <= 0 || rows <= 0 {
		return 0, 0
	}
	maxH := rows * 2
	pw, ph := cols, h*cols/w
	if ph > maxH {
		pw, ph = w*maxH/h, maxH
	}
	return max(pw, 1), max(ph, 1)
}

// Preview draws img with half-block characters within cols x rows cells.
func Preview(img image.Image, cols, rows int) string {
	if img == nil {
		return ""
	}
	b := img.Bounds()
	pw, ph := PreviewSize(b.Dx(), b.Dy(), cols, rows)
	if pw == 0 {
		return ""
	}
	scaled := image.NewNRGBA(image.Rect(0, 0, pw, ph))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, xdraw.Src, nil)

	var sb strings.Builder
	for y := 0; y < ph; y += 2 {
		for x := 0; x < pw; x++ {
			style := lipgloss.NewStyle().Foreground(hex(scaled.NRGBAAt(x, y)))
			if y+1 < ph {
				style = style.Background(hex(scaled.NRGBAAt(x, y+1)))
			}
			sb.WriteString(style.Render(upperHalf))
		}
		if y+2 < ph {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func hex(c color.NRGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
