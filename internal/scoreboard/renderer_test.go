package scoreboard

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

func TestRenderPNGMarksOccupiedBases(t *testing.T) {
	st := scoreproto.State{Inning: "7회 말", Balls: 2, Strikes: 1, Outs: 1, Away: 3, Home: 2, Runners: []scoreproto.Base{scoreproto.BaseFirst}}
	data, err := NewRenderer().RenderPNG(context.Background(), Board{State: st, AwayName: "Tigers", HomeName: "곰", Batter: "2. Lee"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != Width || b.Dy() != Height {
		t.Fatalf("bounds = %v", b)
	}

	on := BaseCenters[scoreproto.BaseFirst]
	r, g, bl, _ := img.At(on.X, on.Y).RGBA()
	if r>>8 < 200 || bl>>8 > 120 {
		t.Fatalf("first base not lit: %d %d %d", r>>8, g>>8, bl>>8)
	}
	off := BaseCenters[scoreproto.BaseThird]
	r, _, _, _ = img.At(off.X, off.Y).RGBA()
	if r>>8 > 100 {
		t.Fatalf("third base should be dark, r=%d", r>>8)
	}
}

func TestRenderPNGHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRenderer().RenderPNG(ctx, Board{State: scoreproto.InitialState()}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestInningLabel(t *testing.T) {
	cases := map[string]string{"1회 초": "TOP 1", "12회 말": "BOT 12", "9회": "9", "": "-", "extra": "extra"}
	for in, want := range cases {
		if got := InningLabel(in); got != want {
			t.Fatalf("InningLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestASCIIFallback(t *testing.T) {
	if got := asciiOnly("곰", "HOME"); got != "HOME" {
		t.Fatalf("got %q", got)
	}
	if got := asciiOnly("Bears 곰", "HOME"); got != "Bears" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abcdefgh", 5); got != "abcd~" {
		t.Fatalf("got %q", got)
	}
}
