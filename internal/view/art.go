package view

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
)

// renderArt converts a cover image to terminal half-block cells. Each text
// row carries two pixel rows: the upper one as the foreground of "▀", the
// lower as the background. cols and rows bound the rendered size; aspect
// ratio is preserved.
func renderArt(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}

	fitted := imaging.Fit(img, cols, rows*2, imaging.Lanczos)
	bounds := fitted.Bounds()

	var b strings.Builder
	for y := 0; y < bounds.Dy(); y += 2 {
		for x := 0; x < bounds.Dx(); x++ {
			st := lipgloss.NewStyle().Foreground(hexAt(fitted, x, y))
			if y+1 < bounds.Dy() {
				st = st.Background(hexAt(fitted, x, y+1))
			}
			b.WriteString(st.Render("▀"))
		}
		if y+2 < bounds.Dy() {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func hexAt(img *image.NRGBA, x, y int) lipgloss.Color {
	c := img.NRGBAAt(x, y)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
