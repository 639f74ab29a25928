package scoreboard

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"
	"unicode"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

const (
	Width  = 480
	Height = 270

	lampRadius = 9
	lampStep   = 26
	lampX      = 60
	baseHalf   = 14
)

// Board is what the scoreboard image shows.
type Board struct {
	State    scoreproto.State
	AwayName string
	HomeName string
	Batter   string
	GameOver bool
}

// Point is a pixel position on the rendered image.
type Point struct{ X, Y int }

// BaseCenters are the diamond base positions; tests and overlays rely on them.
var BaseCenters = map[scoreproto.Base]Point{
	scoreproto.BaseFirst:  {X: 400, Y: 150},
	scoreproto.BaseSecond: {X: 360, Y: 110},
	scoreproto.BaseThird:  {X: 320, Y: 150},
}

var homePlate = Point{X: 360, Y: 190}

const (
	colorBackground = "#1c1f2e"
	colorPanel      = "#262a3d"
	colorBaseOn     = "#f5c542"
	colorBaseOff    = "#3a3f55"
	colorPlate      = "#eceff4"
	colorBall       = "#2ecc71"
	colorStrike     = "#f1c40f"
	colorOut        = "#e74c3c"
	colorLampOff    = "#3a3f55"
)

var (
	textPrimary = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	textMuted   = color.NRGBA{R: 170, G: 176, B: 200, A: 255}
	textAlert   = color.NRGBA{R: 255, G: 120, B: 120, A: 255}
)

// Renderer draws the scoreboard: shapes as SVG rasterized with oksvg, text
// with the basic bitmap face.
type Renderer struct {
	face font.Face
}

func NewRenderer() *Renderer {
	return &Renderer{face: basicfont.Face7x13}
}

func (r *Renderer) RenderPNG(ctx context.Context, b Board) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(buildSVG(b.State)))
	if err != nil {
		return nil, fmt.Errorf("parse scoreboard svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(Width), float64(Height))

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	scanner := rasterx.NewScannerGV(Width, Height, img, img.Bounds())
	raster := rasterx.NewDasher(Width, Height, scanner)
	icon.Draw(raster, 1.0)

	r.drawText(img, b)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func buildSVG(st scoreproto.State) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, Width, Height, Width, Height)
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, Width, Height, colorBackground)
	fmt.Fprintf(&sb, `<rect x="10" y="10" width="%d" height="60" rx="8" ry="8" fill="%s"/>`, Width-20, colorPanel)

	for _, base := range scoreproto.Bases {
		fill := colorBaseOff
		if st.HasRunner(base) {
			fill = colorBaseOn
		}
		writeDiamond(&sb, BaseCenters[base], baseHalf, fill)
	}
	writePlate(&sb, homePlate)

	writeLamps(&sb, 110, clamp(st.Balls, 3), 3, colorBall)
	writeLamps(&sb, 140, clamp(st.Strikes, 2), 2, colorStrike)
	writeLamps(&sb, 170, clamp(st.Outs, 2), 2, colorOut)

	sb.WriteString(`</svg>`)
	return []byte(sb.String())
}

func writeDiamond(sb *strings.Builder, c Point, half int, fill string) {
	fmt.Fprintf(sb, `<polygon points="%d,%d %d,%d %d,%d %d,%d" fill="%s"/>`,
		c.X, c.Y-half, c.X+half, c.Y, c.X, c.Y+half, c.X-half, c.Y, fill)
}

func writePlate(sb *strings.Builder, c Point) {
	fmt.Fprintf(sb, `<polygon points="%d,%d %d,%d %d,%d %d,%d %d,%d" fill="%s"/>`,
		c.X-10, c.Y-8, c.X+10, c.Y-8, c.X+10, c.Y+2, c.X, c.Y+10, c.X-10, c.Y+2, colorPlate)
}

func writeLamps(sb *strings.Builder, y, lit, total int, on string) {
	for i := 0; i < total; i++ {
		fill := colorLampOff
		if i < lit {
			fill = on
		}
		fmt.Fprintf(sb, `<circle cx="%d" cy="%d" r="%d" fill="%s"/>`, lampX+i*lampStep, y, lampRadius, fill)
	}
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func (r *Renderer) drawText(img *image.RGBA, b Board) {
	st := b.State
	d := &font.Drawer{Dst: img, Face: r.face}
	put := func(x, y int, clr color.Color, text string) {
		d.Src = image.NewUniform(clr)
		d.Dot = fixed.P(x, y)
		d.DrawString(text)
	}

	away := asciiOnly(b.AwayName, "AWAY")
	home := asciiOnly(b.HomeName, "HOME")
	put(24, 34, textPrimary, fmt.Sprintf("%-18s %3d", truncate(away, 18), st.Away))
	put(24, 56, textPrimary, fmt.Sprintf("%-18s %3d", truncate(home, 18), st.Home))
	put(340, 45, textPrimary, InningLabel(st.Inning))

	put(24, 114, textMuted, "B")
	put(24, 144, textMuted, "S")
	put(24, 174, textMuted, "O")

	if batter := asciiOnly(b.Batter, ""); batter != "" {
		put(24, 228, textMuted, "AT BAT  "+truncate(batter, 40))
	}
	if b.GameOver {
		put(24, 252, textAlert, "GAME OVER")
	}
}

// InningLabel turns "<n>회 <초|말>" into "TOP n" or "BOT n" for the bitmap
// face, which only has ASCII glyphs. A label without a half marker keeps
// just the number.
func InningLabel(inning string) string {
	var digits strings.Builder
	for _, r := range inning {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if digits.Len() > 0 {
			break
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return asciiOnly(inning, "-")
	}
	switch {
	case scoreproto.IsTopHalf(inning):
		return fmt.Sprintf("TOP %d", n)
	case strings.Contains(inning, scoreproto.HalfBottom):
		return fmt.Sprintf("BOT %d", n)
	}
	return strconv.Itoa(n)
}

func asciiOnly(s, fallback string) string {
	var sb strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsPrint(r) {
			sb.WriteRune(r)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return fallback
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
