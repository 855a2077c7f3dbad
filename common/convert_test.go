package common

import "testing"

func TestConvert_RoundTrip(t *testing.T) {
	r := Rect{X: 1, Y: 2, Width: 30, Height: 40}
	if got := RectFromVec4(r.Vec4()); got != r {
		t.Errorf("Rect round trip = %+v, want %+v", got, r)
	}
	if got, want := r.Center(), (Point{16, 22}); got != want {
		t.Errorf("Center = %+v, want %+v", got, want)
	}

	p := Point{X: -3, Y: 4}
	if got := PointFromVec4(p.Vec4()); got != p {
		t.Errorf("Point round trip = %+v, want %+v", got, p)
	}
	if v := p.Vec4(); v[2] != 0 || v[3] != 0 {
		t.Errorf("Point.Vec4 unused channels = %v, want zero", v)
	}

	s := Size{Width: 5, Height: 6}
	if got := SizeFromVec4(s.Vec4()); got != s {
		t.Errorf("Size round trip = %+v, want %+v", got, s)
	}

	if got := ScalarFromVec4(ScalarVec4(2.5)); got != 2.5 {
		t.Errorf("scalar round trip = %v, want 2.5", got)
	}
}

func TestColorFromVec4_Clamps(t *testing.T) {
	tests := []struct {
		name string
		in   Vec4
		want Color
	}{
		{"in range", Vec4{0.1, 0.2, 0.3, 0.4}, Color{0.1, 0.2, 0.3, 0.4}},
		{"overshoot", Vec4{1.2, -0.1, 1, 0}, Color{1, 0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColorFromVec4(tt.in); got != tt.want {
				t.Errorf("ColorFromVec4(%v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
