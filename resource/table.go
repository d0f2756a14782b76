package resource

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
)

// Table maps script-visible handles to native records and runs each
// record's finalizer exactly once.
type Table struct {
	store     *store
	logger    *zap.Logger
	observers []subscription
	nextSub   uint64
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used to report finalizer failures.
func WithLogger(l *zap.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTable creates an empty table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		store:  newStore(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Insert stores value under a new handle. A nil fin falls back to the
// value's Finalize method, if any.
func (t *Table) Insert(typeID TypeID, value any, fin Finalizer) (Handle, error) {
	if fin == nil {
		if f, ok := value.(Finalizable); ok {
			fin = func(any) { f.Finalize() }
		}
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, errors.Closed(errors.PhaseReference, "resource table")
	}
	h := t.store.put(typeID, value, fin)
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, TypeID: typeID, Value: value})
	return h, nil
}

// Get returns the value stored under h.
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.store.get(h)
	if !ok {
		return nil, false
	}
	return r.value, true
}

// GetTyped returns the value stored under h only if its type matches.
func (t *Table) GetTyped(h Handle, typeID TypeID) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.store.get(h)
	if !ok || r.typeID != typeID {
		return nil, false
	}
	return r.value, true
}

// Release removes h and runs its finalizer. Releasing an unknown or
// already released handle is an error; the finalizer never runs twice.
func (t *Table) Release(h Handle) error {
	t.mu.Lock()
	r, ok := t.store.take(h)
	t.mu.Unlock()
	if !ok {
		return errors.NotFound(errors.PhaseReference, "handle", fmt.Sprint(h))
	}
	t.finalize(h, r)
	return nil
}

// Len returns the number of live records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.live
}

// Each visits live records in handle order until fn returns false. fn runs
// on a snapshot and may call back into the table.
func (t *Table) Each(fn func(Handle, TypeID, any) bool) {
	type item struct {
		v  any
		h  Handle
		id TypeID
	}
	t.mu.Lock()
	items := make([]item, 0, t.store.live)
	t.store.each(func(h Handle, id TypeID, v any) bool {
		items = append(items, item{h: h, id: id, v: v})
		return true
	})
	t.mu.Unlock()

	for _, it := range items {
		if !fn(it.h, it.id, it.v) {
			return
		}
	}
}

type subscription struct {
	o  Observer
	id uint64
}

// Subscribe adds an observer and returns a function that removes it. The
// returned function works for any observer, ObserverFunc included, and
// may be called more than once.
func (t *Table) Subscribe(o Observer) (cancel func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.nextSub++
	id := t.nextSub
	t.observers = append(t.observers, subscription{o: o, id: id})
	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		t.observers = slices.DeleteFunc(t.observers, func(s subscription) bool { return s.id == id })
	}
}

// Unsubscribe removes the first subscription of o. Observers whose
// dynamic type is not comparable, such as ObserverFunc, are never matched;
// use the function returned by Subscribe for those.
func (t *Table) Unsubscribe(o Observer) {
	if !matchable(o) {
		return
	}
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, s := range t.observers {
		if matchable(s.o) && s.o == o {
			t.observers = slices.Delete(t.observers, i, i+1)
			return
		}
	}
}

func matchable(o Observer) bool {
	return o != nil && reflect.TypeOf(o).Comparable()
}

// Close finalizes every remaining record, newest first, and rejects
// further inserts. Safe to call more than once.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	handles, records := t.store.takeAll()
	t.mu.Unlock()

	for i, r := range records {
		t.finalize(handles[i], r)
	}
	if len(records) > 0 {
		t.logger.Debug("resource table closed", zap.Int("finalized", len(records)))
	}
	return nil
}

func (t *Table) finalize(h Handle, r record) {
	if r.fin != nil {
		func() {
			defer func() {
				if p := recover(); p != nil {
					t.logger.Error("finalizer panicked",
						zap.Uint32("handle", uint32(h)),
						zap.Uint32("type", uint32(r.typeID)),
						zap.Any("panic", p))
				}
			}()
			r.fin(r.value)
		}()
	}
	t.notify(Event{Type: EventFinalized, Handle: h, TypeID: r.typeID, Value: r.value})
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, s := range t.observers {
		s.o.OnResourceEvent(e)
	}
}

// As returns the value under h as a T, failing when the handle is unknown,
// carries another type id, or holds a different Go type.
func As[T any](t *Table, h Handle, typeID TypeID) (T, error) {
	var zero T
	t.mu.Lock()
	r, ok := t.store.get(h)
	var v any
	var got TypeID
	if ok {
		v, got = r.value, r.typeID
	}
	t.mu.Unlock()

	if !ok {
		return zero, errors.NotFound(errors.PhaseReference, "handle", fmt.Sprint(h))
	}
	subject := "handle " + fmt.Sprint(h)
	if got != typeID {
		return zero, errors.TypeMismatch(errors.PhaseReference, subject, fmt.Sprint(typeID), fmt.Sprint(got))
	}
	tv, ok := v.(T)
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseReference, subject, fmt.Sprintf("%T", zero), fmt.Sprintf("%T", v))
	}
	return tv, nil
}
