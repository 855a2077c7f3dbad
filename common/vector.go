package common

import "math"

// Vec4 is the fixed four-channel value every animated property is packed into.
// A scalar uses channel 0, a point channels 0-1 and a rectangle or color all four.
// Layout matches vec4<f32> in WGSL.
type Vec4 [4]float32

// Add returns the component-wise sum v + o.
//
// Parameters:
//   - o: the vector to add
//
// Returns:
//   - Vec4: the sum
func (v Vec4) Add(o Vec4) Vec4 {
	return Vec4{v[0] + o[0], v[1] + o[1], v[2] + o[2], v[3] + o[3]}
}

// Sub returns the component-wise difference v - o.
//
// Parameters:
//   - o: the vector to subtract
//
// Returns:
//   - Vec4: the difference
func (v Vec4) Sub(o Vec4) Vec4 {
	return Vec4{v[0] - o[0], v[1] - o[1], v[2] - o[2], v[3] - o[3]}
}

// Scale returns v with every channel multiplied by s.
//
// Parameters:
//   - s: the scalar multiplier
//
// Returns:
//   - Vec4: the scaled vector
func (v Vec4) Scale(s float32) Vec4 {
	return Vec4{v[0] * s, v[1] * s, v[2] * s, v[3] * s}
}

// Abs returns the component-wise absolute value of v.
func (v Vec4) Abs() Vec4 {
	return Vec4{abs32(v[0]), abs32(v[1]), abs32(v[2]), abs32(v[3])}
}

// MaxAbs returns the largest absolute channel value of v.
func (v Vec4) MaxAbs() float32 {
	m := abs32(v[0])
	for i := 1; i < 4; i++ {
		if a := abs32(v[i]); a > m {
			m = a
		}
	}
	return m
}

// Within reports whether every channel of v and o differs by at most eps.
//
// Parameters:
//   - o: the vector to compare against
//   - eps: the per-channel tolerance
//
// Returns:
//   - bool: true if all four channels are within eps
func (v Vec4) Within(o Vec4, eps float32) bool {
	return v.Sub(o).MaxAbs() <= eps
}

func abs32(f float32) float32 {
	return math.Float32frombits(math.Float32bits(f) &^ (1 << 31))
}
