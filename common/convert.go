package common

// Rect is an axis-aligned rectangle packed as (X, Y, Width, Height).
type Rect struct {
	X, Y, Width, Height float32
}

// Point is a 2D position packed as (X, Y, 0, 0).
type Point struct {
	X, Y float32
}

// Size is a 2D extent packed as (Width, Height, 0, 0).
type Size struct {
	Width, Height float32
}

// Color is a straight-alpha RGBA color packed as (R, G, B, A), channels in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Vec4 packs the rectangle into a Vec4.
func (r Rect) Vec4() Vec4 { return Vec4{r.X, r.Y, r.Width, r.Height} }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point { return Point{r.X + r.Width/2, r.Y + r.Height/2} }

// Vec4 packs the point into a Vec4.
func (p Point) Vec4() Vec4 { return Vec4{p.X, p.Y, 0, 0} }

// Vec4 packs the size into a Vec4.
func (s Size) Vec4() Vec4 { return Vec4{s.Width, s.Height, 0, 0} }

// Vec4 packs the color into a Vec4.
func (c Color) Vec4() Vec4 { return Vec4{c.R, c.G, c.B, c.A} }

// RectFromVec4 unpacks a rectangle previously packed with Rect.Vec4.
func RectFromVec4(v Vec4) Rect { return Rect{v[0], v[1], v[2], v[3]} }

// PointFromVec4 unpacks a point previously packed with Point.Vec4.
func PointFromVec4(v Vec4) Point { return Point{v[0], v[1]} }

// SizeFromVec4 unpacks a size previously packed with Size.Vec4.
func SizeFromVec4(v Vec4) Size { return Size{v[0], v[1]} }

// ColorFromVec4 unpacks a color previously packed with Color.Vec4.
// Channels are clamped to [0, 1] because an underdamped spring overshoots its target.
func ColorFromVec4(v Vec4) Color {
	return Color{clamp01(v[0]), clamp01(v[1]), clamp01(v[2]), clamp01(v[3])}
}

// ScalarVec4 packs a single value into channel 0.
func ScalarVec4(f float32) Vec4 { return Vec4{f, 0, 0, 0} }

// ScalarFromVec4 unpacks a value packed with ScalarVec4.
func ScalarFromVec4(v Vec4) float32 { return v[0] }

func clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
