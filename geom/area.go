package geom

// TriangleArea computes the signed area of the triangle (a, b, c) with the
// shoelace formula. The area is positive when the corners are ordered
// counter-clockwise in y-up coordinates and negative when the triangle has
// been folded over.
func TriangleArea(a, b, c Vec2) float64 {
	return 0.5 * ((a[0]*b[1] + b[0]*c[1] + c[0]*a[1]) -
		(a[1]*b[0] + b[1]*c[0] + c[1]*a[0]))
}

// QuadArea computes the signed area of a quadrilateral as the sum of the two
// triangles (c00, c10, c11) and (c00, c11, c01). These are the same two
// triangles a grid mesh is drawn with, so the area matches what is actually
// rasterized even for non-convex quads.
func QuadArea(c00, c10, c11, c01 Vec2) float64 {
	return TriangleArea(c00, c10, c11) + TriangleArea(c00, c11, c01)
}
