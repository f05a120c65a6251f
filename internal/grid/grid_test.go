package grid

import (
	"math"
	"math/rand"
	"strings"
	"testing"
)

const testArt = ` /\_/\
( o.o )
 > ^ <`

// testGrid loads the small cat art used across these tests.
func testGrid(t *testing.T) Grid {
	t.Helper()
	g := Load(testArt)
	if g.Height() != 3 {
		t.Fatalf("expected 3 rows, got %d", g.Height())
	}
	return g
}

func TestLoadPadsToMaxWidth(t *testing.T) {
	g := Load("ab\nabcd\na")
	if g.Width() != 4 {
		t.Fatalf("expected width 4, got %d", g.Width())
	}
	for i, row := range g {
		if len([]rune(row)) != 4 {
			t.Errorf("row %d: expected 4 runes, got %d (%q)", i, len([]rune(row)), row)
		}
	}
	if g[0] != "ab  " {
		t.Errorf("expected padded first row %q, got %q", "ab  ", g[0])
	}
}

func TestLoadTrailingNewline(t *testing.T) {
	g := Load("ab\ncd\n")
	if g.Height() != 2 {
		t.Errorf("trailing newline should not add a row, got %d rows", g.Height())
	}
}

func TestLoadEmpty(t *testing.T) {
	g := Load("")
	if g.Height() != 0 || g.Width() != 0 {
		t.Errorf("empty source should give an empty grid, got %dx%d", g.Width(), g.Height())
	}
}

func TestShiftRow(t *testing.T) {
	tests := []struct {
		row    string
		offset int
		want   string
	}{
		{"abcd", 0, "abcd"},
		{"abcd", 1, " abc"},
		{"abcd", 2, "  ab"},
		{"abcd", -1, "bcd "},
		{"abcd", -3, "d   "},
		{"abcd", -4, "    "},
		{"abcd", -9, "    "},
		{"abcd", 9, "    "},
	}
	for _, tt := range tests {
		got := shiftRow(tt.row, tt.offset, 4)
		if got != tt.want {
			t.Errorf("shiftRow(%q, %d) = %q, want %q", tt.row, tt.offset, got, tt.want)
		}
	}
}

// checkExact verifies the strict invariant: exactly height rows of exactly
// width runes.
func checkExact(t *testing.T, name string, out Grid, height, width int) {
	t.Helper()
	if out.Height() != height {
		t.Errorf("%s: expected %d rows, got %d", name, height, out.Height())
	}
	for i, row := range out {
		if len([]rune(row)) != width {
			t.Errorf("%s: row %d has %d runes, want %d", name, i, len([]rune(row)), width)
		}
	}
}

// checkClipped verifies the relaxed invariant: at most height rows, all of
// exact width.
func checkClipped(t *testing.T, name string, out Grid, height, width int) {
	t.Helper()
	if out.Height() > height {
		t.Errorf("%s: expected <= %d rows, got %d", name, height, out.Height())
	}
	for i, row := range out {
		if len([]rune(row)) != width {
			t.Errorf("%s: row %d has %d runes, want %d", name, i, len([]rune(row)), width)
		}
	}
}

func TestEffectDimensions(t *testing.T) {
	g := testGrid(t)
	h, w := g.Height(), g.Width()

	exact := []string{"wave", "glitch", "matrix", "blink"}
	for _, name := range exact {
		fn := Effects[name]
		for frame := 0; frame < 120; frame++ {
			rng := rand.New(rand.NewSource(int64(frame)))
			checkExact(t, name, fn(g, frame, rng), h, w)
		}
	}

	clipped := []string{"pulse", "bounce", "shake", "dance"}
	for _, name := range clipped {
		fn := Effects[name]
		for frame := 0; frame < 120; frame++ {
			rng := rand.New(rand.NewSource(int64(frame)))
			checkClipped(t, name, fn(g, frame, rng), h, w)
		}
	}
}

func TestEffectsDoNotMutateBase(t *testing.T) {
	g := testGrid(t)
	orig := g.String()
	for name, fn := range Effects {
		for frame := 0; frame < 40; frame++ {
			rng := rand.New(rand.NewSource(7))
			fn(g, frame, rng)
		}
		if g.String() != orig {
			t.Fatalf("%s mutated the base grid", name)
		}
	}
}

func TestWaveOffsetFormula(t *testing.T) {
	g := testGrid(t)
	w := g.Width()
	for frame := 0; frame < 60; frame++ {
		out := Wave(g, frame, nil)
		for y, row := range g {
			offset := int(math.Floor(math.Sin(float64(y)*0.2+float64(frame)*0.2) * 4))
			want := shiftRow(row, offset, w)
			if out[y] != want {
				t.Fatalf("frame %d row %d: got %q, want %q (offset %d)", frame, y, out[y], want, offset)
			}
		}
	}
}

func TestWaveDeterministic(t *testing.T) {
	g := testGrid(t)
	a := Wave(g, 17, nil)
	b := Wave(g, 17, nil)
	if a.String() != b.String() {
		t.Error("wave is not deterministic for equal (grid, frame)")
	}
}

func TestWaveFrameZeroRowZeroUnshifted(t *testing.T) {
	// sin(0) = 0, so the first row at frame 0 passes through unchanged.
	g := testGrid(t)
	out := Wave(g, 0, nil)
	if out[0] != g[0] {
		t.Errorf("expected unshifted row, got %q", out[0])
	}
}

func TestBounceLift(t *testing.T) {
	g := testGrid(t)
	// Frame 8: sin(1.6) ~ 0.9996, floor(*5) = 4 blank rows prepended,
	// clipped back to 3 rows, all blank for a 3-row grid.
	out := Bounce(g, 8, nil)
	if out.Height() != g.Height() {
		t.Fatalf("expected %d rows, got %d", g.Height(), out.Height())
	}
	for i, row := range out {
		if strings.TrimSpace(row) != "" {
			t.Errorf("row %d should be blank after full lift, got %q", i, row)
		}
	}
}

func TestBounceFrameZeroIdentity(t *testing.T) {
	g := testGrid(t)
	out := Bounce(g, 0, nil)
	if out.String() != g.String() {
		t.Error("bounce at frame 0 should be the identity")
	}
}

func TestBlinkCycle(t *testing.T) {
	g := Load("( o.o )\n( @_@ )")
	// Eyes open for frame%30 > 5.
	open := Blink(g, 10, nil)
	if open.String() != g.String() {
		t.Errorf("frame 10: eyes should be open, got\n%s", open.String())
	}
	// Eyes closed for frame%30 <= 5.
	closed := Blink(g, 33, nil)
	if strings.ContainsAny(closed.String(), blinkGlyphs) {
		t.Errorf("frame 33: eye glyphs should be dashed out, got\n%s", closed.String())
	}
	if !strings.Contains(closed[0], "-.-") {
		t.Errorf("expected closed eyes %q in %q", "-.-", closed[0])
	}
}

func TestMatrixOnlyTouchesNonSpace(t *testing.T) {
	g := testGrid(t)
	rng := rand.New(rand.NewSource(42))
	out := Matrix(g, 0, rng)
	for y, row := range out {
		base := []rune(g[y])
		for i, r := range []rune(row) {
			if base[i] == ' ' && r != ' ' {
				t.Errorf("row %d col %d: space replaced with %q", y, i, r)
			}
			if r != base[i] && r != '0' && r != '1' {
				t.Errorf("row %d col %d: replaced with %q, want 0 or 1", y, i, r)
			}
		}
	}
}

func TestGlitchSeededReproducible(t *testing.T) {
	g := testGrid(t)
	a := Glitch(g, 3, rand.New(rand.NewSource(99)))
	b := Glitch(g, 3, rand.New(rand.NewSource(99)))
	if a.String() != b.String() {
		t.Error("glitch with equal seeds should be reproducible")
	}
}

func TestPulseShrinkKeepsWidth(t *testing.T) {
	g := testGrid(t)
	w := g.Width()
	// Frames around sin < 0 shrink; every surviving row keeps full width.
	for frame := 35; frame < 60; frame++ {
		rng := rand.New(rand.NewSource(int64(frame)))
		out := Pulse(g, frame, rng)
		for i, row := range out {
			if len([]rune(row)) != w {
				t.Fatalf("frame %d row %d: width %d, want %d", frame, i, len([]rune(row)), w)
			}
		}
	}
}

func TestDanceDelegation(t *testing.T) {
	g := testGrid(t)
	// Frames 40..59 are move 2 (wave): deterministic, must match Wave exactly.
	for frame := 40; frame < 60; frame++ {
		got := Dance(g, frame, rand.New(rand.NewSource(1)))
		want := Wave(g, frame, nil)
		if got.String() != want.String() {
			t.Fatalf("frame %d: dance move 2 should delegate to wave", frame)
		}
	}
}

func TestEffectRegistryComplete(t *testing.T) {
	if len(EffectNames) != 8 {
		t.Fatalf("expected 8 effect names, got %d", len(EffectNames))
	}
	for _, name := range EffectNames {
		if Effects[name] == nil {
			t.Errorf("effect %q missing from registry", name)
		}
	}
}
