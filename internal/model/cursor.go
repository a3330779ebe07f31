package model

import "fmt"

// CursorState is the position of a paging stream for one symbol.
type CursorState int

const (
	// CursorUnresolved means the starting record has not been located yet.
	CursorUnresolved CursorState = iota
	// CursorActive means more pages may follow the cursor id.
	CursorActive
	// CursorExhausted means the stream has nothing left to fetch.
	CursorExhausted
)

func (s CursorState) String() string {
	switch s {
	case CursorUnresolved:
		return "unresolved"
	case CursorActive:
		return "active"
	case CursorExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("CursorState(%d)", int(s))
	}
}

// Cursor is a "from id" position in a trade or order stream.
// The zero value is Unresolved.
type Cursor struct {
	state CursorState
	id    int64
}

func Unresolved() Cursor { return Cursor{state: CursorUnresolved} }
func Active(id int64) Cursor { return Cursor{state: CursorActive, id: id} }
func Exhausted() Cursor { return Cursor{state: CursorExhausted} }
func (c Cursor) State() CursorState { return c.state }
func (c Cursor) IsActive() bool { return c.state == CursorActive }
func (c Cursor) IsExhausted() bool { return c.state == CursorExhausted }

// ID returns the cursor id; ok is false unless the cursor is Active.
func (c Cursor) ID() (id int64, ok bool) {
	return c.id, c.state == CursorActive
}

// Advance returns the cursor after a page of n records was received for a
// request of size records. A full page keeps the stream open at lastID,
// anything shorter exhausts it. Non-active cursors are returned unchanged.
func (c Cursor) Advance(n, size int, lastID int64) Cursor {
	if c.state != CursorActive {
		return c
	}
	if size > 0 && n >= size {
		return Active(lastID)
	}
	return Exhausted()
}

func (c Cursor) String() string {
	if c.state == CursorActive {
		return fmt.Sprintf("active(%d)", c.id)
	}
	return c.state.String()
}
