package valueobjects

import (
	pkgerrors "screengraph-backend/pkg/errors"
)

// Bounds is the rectangle the layout engine is allowed to place nodes in.
// Sized from the presentation layer's viewport hints.
type Bounds struct {
	minX float64
	minY float64
	maxX float64
	maxY float64
}

// NewBounds creates a bounds rectangle with validation
func NewBounds(minX, minY, maxX, maxY float64) (Bounds, error) {
	if !isFinite(minX) || !isFinite(minY) || !isFinite(maxX) || !isFinite(maxY) {
		return Bounds{}, pkgerrors.NewValidation("invalid bounds: coordinates must be finite")
	}
	if maxX <= minX || maxY <= minY {
		return Bounds{}, pkgerrors.NewValidation("invalid bounds: max must exceed min on both axes")
	}
	return Bounds{minX: minX, minY: minY, maxX: maxX, maxY: maxY}, nil
}

// MinX returns the left edge
func (b Bounds) MinX() float64 { return b.minX }

// MinY returns the top edge
func (b Bounds) MinY() float64 { return b.minY }

// MaxX returns the right edge
func (b Bounds) MaxX() float64 { return b.maxX }

// MaxY returns the bottom edge
func (b Bounds) MaxY() float64 { return b.maxY }

// Width returns the horizontal extent
func (b Bounds) Width() float64 { return b.maxX - b.minX }

// Height returns the vertical extent
func (b Bounds) Height() float64 { return b.maxY - b.minY }

// Center returns the center point of the rectangle
func (b Bounds) Center() Position {
	return Position{x: (b.minX + b.maxX) / 2, y: (b.minY + b.maxY) / 2}
}

// Contains reports whether the position lies inside the rectangle
func (b Bounds) Contains(p Position) bool {
	return p.x >= b.minX && p.x <= b.maxX && p.y >= b.minY && p.y <= b.maxY
}

// Clamp returns the nearest position inside the rectangle, keeping the given
// padding away from the edges when the rectangle is large enough for it.
func (b Bounds) Clamp(p Position, padding float64) Position {
	minX, maxX := b.minX, b.maxX
	minY, maxY := b.minY, b.maxY
	if padding > 0 && b.Width() > 2*padding && b.Height() > 2*padding {
		minX += padding
		maxX -= padding
		minY += padding
		maxY -= padding
	}
	return Position{
		x: clampFloat(p.x, minX, maxX),
		y: clampFloat(p.y, minY, maxY),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
