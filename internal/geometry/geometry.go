// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geometry implements the rectangle predicates used to decide which
// page blocks a detected table absorbs.
package geometry

import (
	"math"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// Intersects reports whether a and b overlap or touch. Boxes are disjoint
// only when one lies entirely to one side of the other on either axis.
func Intersects(a, b types.Rect) bool {
	return !(a.X2 < b.X1 || b.X2 < a.X1 || a.Y2 < b.Y1 || b.Y2 < a.Y1)
}

// Contains reports whether inner lies entirely within outer, edges included.
// Partial overlap is not containment.
func Contains(outer, inner types.Rect) bool {
	return outer.X1 <= inner.X1 && inner.X2 <= outer.X2 &&
		outer.Y1 <= inner.Y1 && inner.Y2 <= outer.Y2
}

// Union returns the smallest box covering every rect. It returns the zero
// Rect when rects is empty.
func Union(rects ...types.Rect) types.Rect {
	if len(rects) == 0 {
		return types.Rect{}
	}
	u := rects[0]
	for _, r := range rects[1:] {
		u.X1 = math.Min(u.X1, r.X1)
		u.Y1 = math.Min(u.Y1, r.Y1)
		u.X2 = math.Max(u.X2, r.X2)
		u.Y2 = math.Max(u.Y2, r.Y2)
	}
	return u
}
