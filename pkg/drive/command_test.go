package drive

import (
	"math"
	"testing"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestMix(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want Wheels
	}{
		{"stop", Command{0, 0}, Wheels{0, 0}},
		{"straight", Command{0.5, 0}, Wheels{0.5, 0.5}},
		{"right turn", Command{0.2, 0.3}, Wheels{-0.1, 0.5}},
		{"left turn", Command{0.2, -0.3}, Wheels{0.5, -0.1}},
		{"saturates", Command{0.9, 0.8}, Wheels{0.1, 1}},
		{"saturates reverse", Command{-0.9, 0.8}, Wheels{-1, -0.1}},
		{"spin", Command{0, 1}, Wheels{-1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mix(tt.cmd)
			if !floatEquals(got.Left, tt.want.Left, 1e-9) || !floatEquals(got.Right, tt.want.Right, 1e-9) {
				t.Errorf("Mix(%+v) = %+v, want %+v", tt.cmd, got, tt.want)
			}
		})
	}
}

func TestMixAlwaysInRange(t *testing.T) {
	for lin := -1.0; lin <= 1.0; lin += 0.1 {
		for steer := -1.0; steer <= 1.0; steer += 0.1 {
			w := Mix(Command{lin, steer})
			if w.Left < -1 || w.Left > 1 || w.Right < -1 || w.Right > 1 {
				t.Fatalf("Mix(%v, %v) = %+v out of range", lin, steer, w)
			}
		}
	}
}

func TestDerate(t *testing.T) {
	tests := []struct {
		base, steering, want float64
	}{
		{0.2, 0.4, 0.16},
		{0.2, -0.4, 0.16},
		{0.2, 0, 0.2},
		{0.2, 0.8, 0.12},
		{0.5, 1, 0.25},
	}
	for _, tt := range tests {
		if got := Derate(tt.base, tt.steering); !floatEquals(got, tt.want, 1e-9) {
			t.Errorf("Derate(%v, %v) = %v, want %v", tt.base, tt.steering, got, tt.want)
		}
	}
}
