package space

import (
	"errors"
	"math"
	"testing"
)

func TestFromAround(t *testing.T) {
	tests := []struct {
		name   string
		center Point
		res    Resolution
		start  Point
		end    Point
	}{
		{"odd resolution at origin", NewPoint(0, 0), NewResolution(3, 3), NewPoint(-1, -1), NewPoint(1, 1)},
		{"even resolution", NewPoint(10, 10), NewResolution(4, 2), NewPoint(8, 9), NewPoint(11, 10)},
		{"single tile", NewPoint(5, 7), NewResolution(1, 1), NewPoint(5, 7), NewPoint(5, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := FromAround(tt.center, tt.res)
			if w.Start != tt.start || w.End != tt.end {
				t.Fatalf("got %s, want %s:%s", w, tt.start, tt.end)
			}
			if w.Width() != tt.res.Width || w.Height() != tt.res.Height {
				t.Fatalf("size %dx%d, want %dx%d", w.Width(), w.Height(), tt.res.Width, tt.res.Height)
			}
			if !w.Contains(tt.center) {
				t.Fatalf("window %s does not contain its center %s", w, tt.center)
			}
		})
	}
}

func TestStepFromShape(t *testing.T) {
	if got := StepFromShape(9); got != StepClose {
		t.Fatalf("got %s", got)
	}
	if got := StepFromShape(16_384); got != StepHigh {
		t.Fatalf("got %s", got)
	}
	if got := StepFromShape(524_288); got != StepMap {
		t.Fatalf("got %s", got)
	}
	if StepMap.IncludeCities() || !StepHigh.IncludeUnits() {
		t.Fatal("unexpected step inclusion")
	}
}

func TestGridGetSet(t *testing.T) {
	g := NewGrid2D[int](NewSize(2, 3))
	v := 42
	if err := g.Set(NewPoint(1, 2), &v); err != nil {
		t.Fatal(err)
	}
	if got := g.Get(NewPoint(1, 2)); got == nil || *got != 42 {
		t.Fatalf("got %v", got)
	}
	if got := g.Get(NewPoint(2, 0)); got != nil {
		t.Fatal("out of range point returned a value")
	}
	if err := g.Set(NewPoint(-1, 0), &v); err != ErrOutOfGrid {
		t.Fatalf("got %v", err)
	}
	i, ok := g.Index(NewPoint(1, 2))
	if !ok || i != 5 || g.PointOf(i) != NewPoint(1, 2) {
		t.Fatalf("index round trip failed: %d %v", i, ok)
	}
}

func TestGridSlice(t *testing.T) {
	g := NewGrid2D[string](NewSize(2, 2))
	a, b := "a", "b"
	_ = g.Set(NewPoint(0, 0), &a)
	_ = g.Set(NewPoint(1, 1), &b)

	s := g.Slice(FromAround(NewPoint(0, 0), NewResolution(3, 3)))
	if len(s) != 9 {
		t.Fatalf("len %d", len(s))
	}
	for i, cell := range s {
		switch i {
		case 4:
			if cell == nil || *cell != "a" {
				t.Fatalf("cell 4: %v", cell)
			}
		case 8:
			if cell == nil || *cell != "b" {
				t.Fatalf("cell 8: %v", cell)
			}
		default:
			if cell != nil {
				t.Fatalf("cell %d should be empty", i)
			}
		}
	}
}

func TestGridEachIn(t *testing.T) {
	g := NewGrid2D[int](NewSize(4, 4))
	for i := range 16 {
		v := i
		_ = g.Set(g.PointOf(i), &v)
	}
	var seen []int
	g.EachIn(NewWindow(NewPoint(-5, 2), NewPoint(1, 9)), func(_ Point, v *int) {
		seen = append(seen, *v)
	})
	want := []int{8, 9, 12, 13}
	if len(seen) != len(want) {
		t.Fatalf("got %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v, want %v", seen, want)
		}
	}
}

func TestPointRelativeTo(t *testing.T) {
	p, ok := NewPoint(3, 4).RelativeTo(NewPoint(1, 1))
	if !ok || p != NewPoint(2, 3) {
		t.Fatalf("got %v %v", p, ok)
	}
	if _, ok := NewPoint(0, 4).RelativeTo(NewPoint(1, 1)); ok {
		t.Fatal("expected point before origin to fail")
	}
}

func TestWindowValidate(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		want error
	}{
		{"world sized", NewWindow(NewPoint(0, 0), NewPoint(MaxWindowSide-1, MaxWindowSide-1)), nil},
		{"past the edges", NewWindow(NewPoint(-5, -5), NewPoint(5, 5)), nil},
		{"too wide", NewWindow(NewPoint(0, 0), NewPoint(MaxWindowSide, 0)), ErrWindowTooLarge},
		{"huge", NewWindow(NewPoint(0, 0), NewPoint(1<<31, 1<<31)), ErrWindowTooLarge},
		{"extreme corners", NewWindow(NewPoint(math.MinInt64, 0), NewPoint(math.MaxInt64, 0)), ErrWindowOutOfRange},
		{"far but small", NewWindow(NewPoint(math.MaxInt64-1, 0), NewPoint(math.MaxInt64, 0)), ErrWindowOutOfRange},
		{"reversed literal", Window{Start: NewPoint(2, 2), End: NewPoint(1, 1)}, ErrWindowOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolutionValidate(t *testing.T) {
	if err := NewResolution(MaxWindowSide, 3).Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if err := NewResolution(3, math.MaxUint64).Validate(); !errors.Is(err, ErrResolutionTooLarge) {
		t.Fatalf("Validate() = %v, want ErrResolutionTooLarge", err)
	}
}
