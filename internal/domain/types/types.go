// Package types contains small value types shared across the application.
package types

// Tag names the party that won a single stat row.
type Tag string

const (
	TagTie        Tag = "tie"
	TagChallenger Tag = "challenger"
	TagResponder  Tag = "responder"
)

// Invert swaps challenger and responder; ties stay ties.
func (t Tag) Invert() Tag {
	switch t {
	case TagChallenger:
		return TagResponder
	case TagResponder:
		return TagChallenger
	default:
		return TagTie
	}
}

// Valid reports whether t is one of the known tags.
func (t Tag) Valid() bool {
	return t == TagTie || t == TagChallenger || t == TagResponder
}

// Side is a horizontal half of the rendered card.
type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Other returns the opposite side; SideNone has no opposite.
func (s Side) Other() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return SideNone
	}
}

// Valid reports whether s is a known side, including SideNone.
func (s Side) Valid() bool {
	return s == SideNone || s == SideLeft || s == SideRight
}

// SideOf maps a row winner onto the card: the challenger (champion) is
// always drawn on the left.
func SideOf(t Tag) Side {
	switch t {
	case TagChallenger:
		return SideLeft
	case TagResponder:
		return SideRight
	default:
		return SideNone
	}
}
