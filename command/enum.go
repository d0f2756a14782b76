package command

import "strconv"

// Tag identifies a command kind within one Enum. Tag 0 is None.
type Tag uint16

// None is the reserved sentinel. It can never be queued or dispatched.
const None Tag = 0

// Command is one queued request. Each command kind is its own struct type,
// so payloads stay typed:
//
//	type Resize struct{ Width, Height int }
//	func (Resize) Tag() command.Tag { return TagResize }
type Command interface {
	Tag() Tag
}

// Enum is the closed, versioned set of tags shared by the producers and the
// consumer of one queue. Names are indexed by tag value; index 0 names None
// and Max equals the number of names.
//
// Tags at or above the quiet threshold are frequent and are not logged on
// queue or dispatch. New tags take the next free value below Max and are
// placed before or after the threshold by expected call frequency.
type Enum struct {
	names []string
	quiet Tag
}

// NewEnum builds an enum from names, names[0] being the None sentinel.
// quietFrom is the first tag exempt from diagnostic logging; pass Max or 0
// to log everything.
func NewEnum(quietFrom Tag, names ...string) *Enum {
	if len(names) == 0 {
		names = []string{"none"}
	}
	e := &Enum{names: names, quiet: quietFrom}
	if quietFrom == None || quietFrom > e.Max() {
		e.quiet = e.Max()
	}
	return e
}

// Max is the sentinel one past the last valid tag.
func (e *Enum) Max() Tag {
	return Tag(len(e.names))
}

// Valid reports whether t may be queued and dispatched.
func (e *Enum) Valid(t Tag) bool {
	return t != None && t < e.Max()
}

// Quiet reports whether t is exempt from diagnostic logging.
func (e *Enum) Quiet(t Tag) bool {
	return t >= e.quiet
}

// Name returns the tag name, or a numeric form for out-of-range tags.
func (e *Enum) Name(t Tag) string {
	if int(t) < len(e.names) {
		return e.names[t]
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}
