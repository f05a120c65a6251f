package grid

import (
	"math"
	"math/rand"
	"strings"
)

// Effect transforms the base grid for one animation frame. Stochastic effects
// draw from rng so callers can seed them deterministically.
type Effect func(g Grid, frame int, rng *rand.Rand) Grid

// Effects is the registry of all named effects.
var Effects = map[string]Effect{
	"wave":   Wave,
	"pulse":  Pulse,
	"bounce": Bounce,
	"shake":  Shake,
	"glitch": Glitch,
	"dance":  Dance,
	"matrix": Matrix,
	"blink":  Blink,
}

// EffectNames lists the effects in a fixed order for the director's
// uniform pick.
var EffectNames = []string{"wave", "pulse", "bounce", "shake", "glitch", "dance", "matrix", "blink"}

// glitchSymbols is the fixed symbol set glitch corruption draws from.
var glitchSymbols = []rune{'!', '@', '#', '$', '%', '&', '?', '~'}

// blinkGlyphs are the characters blink treats as "eyes".
const blinkGlyphs = "oO0@*"

// Wave shifts each row horizontally by floor(sin(y*0.2+frame*0.2)*4).
// Pure: same (row, frame) always yields the same offset.
func Wave(g Grid, frame int, _ *rand.Rand) Grid {
	width := g.Width()
	out := make(Grid, len(g))
	for y, row := range g {
		offset := int(math.Floor(math.Sin(float64(y)*0.2+float64(frame)*0.2) * 4))
		out[y] = shiftRow(row, offset, width)
	}
	return out
}

// Pulse scales the grid by 1+sin(frame*0.1)*0.1. Growing frames prepend blank
// rows and probabilistically double characters; shrinking frames drop whole
// rows. Output never exceeds the base height and every row keeps base width.
func Pulse(g Grid, frame int, rng *rand.Rand) Grid {
	height, width := g.Height(), g.Width()
	scale := 1 + math.Sin(float64(frame)*0.1)*0.1

	if scale > 1 {
		extra := int(math.Floor(float64(height) * (scale - 1) / 2))
		out := make(Grid, 0, height+extra)
		for i := 0; i < extra; i++ {
			out = append(out, blankRow(width))
		}
		p := scale - 1
		for _, row := range g {
			var b strings.Builder
			for _, r := range row {
				b.WriteRune(r)
				if rng.Float64() < p {
					b.WriteRune(r)
				}
			}
			widened := []rune(b.String())
			out = append(out, string(widened[:width]))
		}
		return clip(out, height)
	}

	if scale < 1 {
		p := 1 - scale
		out := make(Grid, 0, height)
		for _, row := range g {
			if rng.Float64() < p {
				continue
			}
			out = append(out, row)
		}
		return out
	}

	return g.Clone()
}

// Bounce lifts the art by abs(floor(sin(frame*0.2)*5)) blank rows, clipping
// the bottom rows out of view.
func Bounce(g Grid, frame int, _ *rand.Rand) Grid {
	height, width := g.Height(), g.Width()
	lift := int(math.Abs(math.Floor(math.Sin(float64(frame)*0.2) * 5)))
	out := make(Grid, 0, height+lift)
	for i := 0; i < lift; i++ {
		out = append(out, blankRow(width))
	}
	out = append(out, g...)
	return clip(out, height)
}

// Shake jitters the whole grid by one random horizontal offset in [-2,2] and
// a random vertical drop in [0,2] per frame.
func Shake(g Grid, _ int, rng *rand.Rand) Grid {
	height, width := g.Height(), g.Width()
	h := rng.Intn(5) - 2
	v := rng.Intn(3)
	out := make(Grid, 0, height+v)
	for i := 0; i < v; i++ {
		out = append(out, blankRow(width))
	}
	for _, row := range g {
		out = append(out, shiftRow(row, h, width))
	}
	return clip(out, height)
}

// Glitch corrupts rows with probability intensity*0.1 where intensity is a
// fresh uniform draw each frame. A corrupted row is either shifted by a
// random offset in [-5,5] or has non-space characters replaced (p=0.3) by
// symbols from the fixed glitch set.
func Glitch(g Grid, _ int, rng *rand.Rand) Grid {
	width := g.Width()
	intensity := rng.Float64()
	out := make(Grid, len(g))
	for y, row := range g {
		if rng.Float64() >= intensity*0.1 {
			out[y] = row
			continue
		}
		if rng.Float64() < 0.5 {
			out[y] = shiftRow(row, rng.Intn(11)-5, width)
			continue
		}
		runes := []rune(row)
		for i, r := range runes {
			if r != ' ' && rng.Float64() < 0.3 {
				runes[i] = glitchSymbols[rng.Intn(len(glitchSymbols))]
			}
		}
		out[y] = string(runes)
	}
	return out
}

// Dance cycles through four moves, one per 20 frames: sway, bounce, wave,
// shake.
func Dance(g Grid, frame int, rng *rand.Rand) Grid {
	switch (frame / 20) % 4 {
	case 0:
		width := g.Width()
		offset := int(math.Floor(math.Sin(float64(frame)*0.3) * 5))
		out := make(Grid, len(g))
		for y, row := range g {
			out[y] = shiftRow(row, offset, width)
		}
		return out
	case 1:
		return Bounce(g, frame, rng)
	case 2:
		return Wave(g, frame, rng)
	default:
		return Shake(g, frame, rng)
	}
}

// Matrix replaces non-space characters with '0' or '1' at p=0.05.
func Matrix(g Grid, _ int, rng *rand.Rand) Grid {
	out := make(Grid, len(g))
	for y, row := range g {
		runes := []rune(row)
		for i, r := range runes {
			if r == ' ' || rng.Float64() >= 0.05 {
				continue
			}
			if rng.Float64() < 0.5 {
				runes[i] = '0'
			} else {
				runes[i] = '1'
			}
		}
		out[y] = string(runes)
	}
	return out
}

// Blink closes the mascot's "eyes" (the glyphs oO0@*) for the first part of
// every 30-frame cycle.
func Blink(g Grid, frame int, _ *rand.Rand) Grid {
	if frame%30 > 5 {
		return g.Clone()
	}
	out := make(Grid, len(g))
	for y, row := range g {
		runes := []rune(row)
		for i, r := range runes {
			if strings.ContainsRune(blinkGlyphs, r) {
				runes[i] = '-'
			}
		}
		out[y] = string(runes)
	}
	return out
}
