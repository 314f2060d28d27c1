package geom

import (
	"math"
)

// Vec2 is a point or offset in normalized grid coordinates.
type Vec2 [2]float64

func (v Vec2) Add(u Vec2) Vec2 { return Vec2{v[0] + u[0], v[1] + u[1]} }
func (v Vec2) Sub(u Vec2) Vec2 { return Vec2{v[0] - u[0], v[1] - u[1]} }

func (v Vec2) Scale(k float64) Vec2 { return Vec2{v[0] * k, v[1] * k} }

// Cross returns the z component of the cross product of v and u.
func (v Vec2) Cross(u Vec2) float64 { return v[0]*u[1] - v[1]*u[0] }

// Norm returns the Euclidean length of v.
func (v Vec2) Norm() float64 { return math.Hypot(v[0], v[1]) }
