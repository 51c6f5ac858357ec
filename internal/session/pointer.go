package session

import (
	"image"
	"time"
)

// ElementID names a logical interactive element. The presentation layer decides where an
// element is drawn; the engine only knows what it means.
type ElementID string

const (
	ElementStart      ElementID = "start"
	ElementDifficulty ElementID = "difficulty"
	ElementExit       ElementID = "exit_game"
	ElementBack       ElementID = "back"
	ElementEasy       ElementID = "difficulty_easy"
	ElementNormal     ElementID = "difficulty_normal"
	ElementHard       ElementID = "difficulty_hard"
	ElementNext       ElementID = "next"
	ElementQuit       ElementID = "quit"
	ElementRestart    ElementID = "restart"
	ElementMenu       ElementID = "menu"
)

// DifficultyElement returns the card element for d.
func DifficultyElement(d Difficulty) ElementID {
	switch d {
	case Easy:
		return ElementEasy
	case Hard:
		return ElementHard
	default:
		return ElementNormal
	}
}

// difficultyOf maps a difficulty card back to its difficulty.
func difficultyOf(id ElementID) (Difficulty, bool) {
	switch id {
	case ElementEasy:
		return Easy, true
	case ElementNormal:
		return Normal, true
	case ElementHard:
		return Hard, true
	}
	return Normal, false
}

// Rect is an axis-aligned hit-test rectangle. Both corners are inclusive.
type Rect struct {
	Min image.Point
	Max image.Point
}

// R is shorthand for Rect{image.Pt(x0, y0), image.Pt(x1, y1)}.
func R(x0, y0, x1, y1 int) Rect {
	return Rect{Min: image.Pt(x0, y0), Max: image.Pt(x1, y1)}
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return r.Min.X <= x && x <= r.Max.X && r.Min.Y <= y && y <= r.Max.Y
}

// Region is an active, clickable element for the current frame.
type Region struct {
	ID          ElementID
	Rect        Rect
	DoubleClick bool
}

// PointerKind distinguishes clicks from moves.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
)

// PointerEvent is one raw pointer event delivered by the render surface.
type PointerEvent struct {
	Kind PointerKind
	X, Y int
}

// Click records the most recent accepted click for double-click detection.
type Click struct {
	At      time.Time
	Element ElementID
	X, Y    int
}

// HitTest returns the first region containing (x, y).
func HitTest(regions []Region, x, y int) (Region, bool) {
	for _, r := range regions {
		if r.Rect.Contains(x, y) {
			return r, true
		}
	}
	return Region{}, false
}

// HoverAt returns the element under (x, y), or "" when the pointer is over no region.
func HoverAt(regions []Region, x, y int) ElementID {
	if r, ok := HitTest(regions, x, y); ok {
		return r.ID
	}
	return ""
}
