package valueobjects

import (
	"math"
	"testing"
)

func TestPosition_NewPosition(t *testing.T) {
	tests := []struct {
		name    string
		x, y    float64
		wantErr bool
	}{
		{
			name: "valid position",
			x:    10.5, y: -3.2,
			wantErr: false,
		},
		{
			name: "zero position",
			x:    0, y: 0,
			wantErr: false,
		},
		{
			name: "NaN x",
			x:    math.NaN(), y: 0,
			wantErr: true,
		},
		{
			name: "positive infinity y",
			x:    0, y: math.Inf(1),
			wantErr: true,
		},
		{
			name: "negative infinity x",
			x:    math.Inf(-1), y: 0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPosition(tt.x, tt.y)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPosition() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && (p.X() != tt.x || p.Y() != tt.y) {
				t.Errorf("NewPosition() = (%v, %v), want (%v, %v)", p.X(), p.Y(), tt.x, tt.y)
			}
		})
	}
}

func TestPosition_DistanceTo(t *testing.T) {
	a, _ := NewPosition(0, 0)
	b, _ := NewPosition(3, 4)

	if got := a.DistanceTo(b); got != 5 {
		t.Errorf("DistanceTo() = %v, want 5", got)
	}
	if got := b.DistanceTo(a); got != 5 {
		t.Errorf("DistanceTo() should be symmetric, got %v", got)
	}
}

func TestPosition_Equals(t *testing.T) {
	a, _ := NewPosition(1.0, 2.0)
	b, _ := NewPosition(1.0+1e-12, 2.0-1e-12)
	c, _ := NewPosition(1.1, 2.0)

	if !a.Equals(b) {
		t.Error("positions within epsilon should be equal")
	}
	if a.Equals(c) {
		t.Error("distinct positions should not be equal")
	}
}

func TestBounds_Clamp(t *testing.T) {
	bounds, err := NewBounds(0, 0, 100, 100)
	if err != nil {
		t.Fatalf("NewBounds() error = %v", err)
	}

	tests := []struct {
		name       string
		x, y       float64
		padding    float64
		wantX, wantY float64
	}{
		{
			name: "inside stays put",
			x:    50, y: 50, padding: 10,
			wantX: 50, wantY: 50,
		},
		{
			name: "outside right clamps to padded edge",
			x:    150, y: 50, padding: 10,
			wantX: 90, wantY: 50,
		},
		{
			name: "outside both axes",
			x:    -20, y: 130, padding: 5,
			wantX: 5, wantY: 95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := NewPosition(tt.x, tt.y)
			got := bounds.Clamp(p, tt.padding)
			if got.X() != tt.wantX || got.Y() != tt.wantY {
				t.Errorf("Clamp() = (%v, %v), want (%v, %v)", got.X(), got.Y(), tt.wantX, tt.wantY)
			}
		})
	}
}

func TestBounds_NewBounds_Invalid(t *testing.T) {
	if _, err := NewBounds(100, 0, 0, 100); err == nil {
		t.Error("NewBounds() should reject inverted x extent")
	}
	if _, err := NewBounds(0, 100, 100, 100); err == nil {
		t.Error("NewBounds() should reject empty y extent")
	}
}

func TestBounds_Center(t *testing.T) {
	bounds, _ := NewBounds(0, 0, 200, 100)
	center := bounds.Center()
	if center.X() != 100 || center.Y() != 50 {
		t.Errorf("Center() = (%v, %v), want (100, 50)", center.X(), center.Y())
	}
}
