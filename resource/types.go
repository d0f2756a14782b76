package resource

// Handle is the integer a script holds in place of a native record.
// Handle 0 is reserved and always invalid.
type Handle uint32

// TypeID tags the kind of native value a record holds.
type TypeID uint32

// Finalizer releases the native side of a record. It runs exactly once,
// either on Release or when the table is closed.
type Finalizer func(value any)

// EventType identifies a record lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventFinalized
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Event describes one record lifecycle transition.
type Event struct {
	Value  any
	Handle Handle
	TypeID TypeID
	Type   EventType
}

// Observer receives record lifecycle events. Events are delivered
// synchronously on the goroutine that caused them.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer. Remove a function observer
// with the cancel function Subscribe returns; Unsubscribe cannot match it.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Finalizable is implemented by values that carry their own cleanup. It is
// used when Insert is given no explicit Finalizer.
type Finalizable interface {
	Finalize()
}
