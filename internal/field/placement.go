// internal/field/placement.go
//
// Spawn placement by bounded rejection sampling.
//
// A candidate point is drawn uniformly inside the playable area (screen minus
// edge padding, top/bottom chrome insets, and card size). It is rejected if it
// falls inside the receiver's exclusion circle or any UI exclusion rectangle.
// After MaxPlacementAttempts rejections, an unchecked point is used instead;
// if that point is inside the exclusion circle it is pushed FallbackNudge
// pixels horizontally away from the centre, clamped to the playable area.
// Termination is guaranteed; an occasional overlap with chrome is accepted.

package field

import (
	"math"
	"sync"
)

const (
	MaxPlacementAttempts = 100
	FallbackNudge        = 200.0
	maxRotationDegrees   = 10.0
)

// Rand is the random source used for placement. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Rect is an axis-aligned exclusion zone in play-area coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Bounds describes the play area. The receiver sits at its centre.
type Bounds struct {
	Width, Height   float64
	Padding         float64
	TopInset        float64 // reserved for the top bar
	BottomInset     float64 // reserved for bottom controls
	CardWidth       float64
	CardHeight      float64
	ExclusionRadius float64 // circle around the receiver
	Exclusions      []Rect  // fixed UI chrome
}

// DesktopBounds returns the default layout for a width×height play area.
func DesktopBounds(width, height, exclusionRadius float64) Bounds {
	return Bounds{
		Width:           width,
		Height:          height,
		Padding:         10,
		TopInset:        60,
		CardWidth:       160,
		CardHeight:      60,
		ExclusionRadius: exclusionRadius,
		Exclusions: []Rect{
			{X: 0, Y: 0, W: 360, H: 250},
			{X: width - 420, Y: 0, W: 420, H: 200},
			{X: width - 200, Y: height - 100, W: 200, H: 100},
		},
	}
}

// Center returns the receiver centre.
func (b Bounds) Center() (x, y float64) {
	return b.Width / 2, b.Height / 2
}

func (b Bounds) playable() (minX, maxX, minY, maxY float64) {
	minX = b.Padding
	maxX = math.Max(minX, b.Width-b.CardWidth-b.Padding)
	minY = b.Padding + b.TopInset
	maxY = math.Max(minY, b.Height-b.CardHeight-b.Padding-b.BottomInset)
	return minX, maxX, minY, maxY
}

func (b Bounds) inExclusionCircle(x, y float64) bool {
	cx, cy := b.Center()
	return math.Hypot(x-cx, y-cy) < b.ExclusionRadius
}

// accepts reports whether (x, y) is clear of every exclusion zone.
func (b Bounds) accepts(x, y float64) bool {
	if b.inExclusionCircle(x, y) {
		return false
	}
	for _, r := range b.Exclusions {
		if r.Contains(x, y) {
			return false
		}
	}
	return true
}

// Placer assigns spawn positions and rotations. Safe for concurrent use.
type Placer struct {
	bounds Bounds

	mu  sync.Mutex // guards rng
	rng Rand
}

// NewPlacer returns a Placer over bounds drawing from rng.
func NewPlacer(bounds Bounds, rng Rand) *Placer {
	return &Placer{bounds: bounds, rng: rng}
}

// Bounds returns the play area.
func (p *Placer) Bounds() Bounds { return p.bounds }

// Position returns a spawn point. fallback is true when the attempt cap was hit.
func (p *Placer) Position() (x, y float64, fallback bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	minX, maxX, minY, maxY := p.bounds.playable()
	for attempt := 0; attempt < MaxPlacementAttempts; attempt++ {
		x = p.rng.Float64()*(maxX-minX) + minX
		y = p.rng.Float64()*(maxY-minY) + minY
		if p.bounds.accepts(x, y) {
			return x, y, false
		}
	}

	x = p.rng.Float64()*(maxX-minX) + minX
	y = p.rng.Float64()*(maxY-minY) + minY
	if p.bounds.inExclusionCircle(x, y) {
		cx, _ := p.bounds.Center()
		if x < cx {
			x = math.Max(minX, x-FallbackNudge)
		} else {
			x = math.Min(maxX, x+FallbackNudge)
		}
	}
	return x, y, true
}

// Rotation returns a cosmetic tilt in [-10, 10) degrees.
func (p *Placer) Rotation() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()*2*maxRotationDegrees - maxRotationDegrees
}
