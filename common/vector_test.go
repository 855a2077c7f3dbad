package common

import (
	"math"
	"testing"
)

func TestVec4_Arithmetic(t *testing.T) {
	a := Vec4{1, -2, 3, -4}
	b := Vec4{0.5, 0.5, -1, 2}

	if got, want := a.Add(b), (Vec4{1.5, -1.5, 2, -2}); got != want {
		t.Errorf("Add = %v, want %v", got, want)
	}
	if got, want := a.Sub(b), (Vec4{0.5, -2.5, 4, -6}); got != want {
		t.Errorf("Sub = %v, want %v", got, want)
	}
	if got, want := a.Scale(-2), (Vec4{-2, 4, -6, 8}); got != want {
		t.Errorf("Scale = %v, want %v", got, want)
	}
	if got, want := a.Abs(), (Vec4{1, 2, 3, 4}); got != want {
		t.Errorf("Abs = %v, want %v", got, want)
	}
}

func TestVec4_MaxAbs(t *testing.T) {
	tests := []struct {
		name string
		v    Vec4
		want float32
	}{
		{"zero", Vec4{}, 0},
		{"first channel", Vec4{-7, 1, 2, 3}, 7},
		{"last channel", Vec4{1, 2, 3, -9}, 9},
		{"negative zero", Vec4{float32(math.Copysign(0, -1)), 0, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.MaxAbs(); got != tt.want {
				t.Errorf("MaxAbs(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestVec4_Within(t *testing.T) {
	a := Vec4{1, 1, 1, 1}
	if !a.Within(Vec4{1.005, 0.995, 1, 1}, 0.01) {
		t.Error("values inside tolerance reported outside")
	}
	if a.Within(Vec4{1, 1, 1, 1.02}, 0.01) {
		t.Error("one channel outside tolerance reported inside")
	}
}
