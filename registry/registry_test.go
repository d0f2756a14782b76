package registry

import (
	"errors"
	"runtime"
	"slices"
	"testing"

	"github.com/wippyai/wasm-stage/lifecycle"
)

// trace records allocator calls across all objects of a test.
type trace struct {
	events []string
	fail   map[string]bool
}

type traceAlloc struct {
	t    *trace
	name string
}

func (a traceAlloc) Allocate(p string) error {
	if a.t.fail[a.name] {
		return errors.New("no memory")
	}
	a.t.events = append(a.t.events, "init "+a.name+":"+p)
	return nil
}

func (a traceAlloc) Release() error {
	a.t.events = append(a.t.events, "release "+a.name)
	return nil
}

type object struct {
	*lifecycle.Base[string]
	pad [4]*int
}

func newObject(t *trace, name string) *object {
	return &object{Base: lifecycle.New[string](name, traceAlloc{t: t, name: name})}
}

func names(r *Registry[object, *object]) []string {
	var out []string
	r.ForEach(func(o *object) { out = append(out, o.Name()) })
	return out
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	tr := &trace{}
	r := New[object]("objects")
	a, b, c, d := newObject(tr, "a"), newObject(tr, "b"), newObject(tr, "c"), newObject(tr, "d")

	tests := []struct {
		name string
		op   func()
		want []string
	}{
		{"register a b c", func() { r.Register(a); r.Register(b); r.Register(c) }, []string{"a", "b", "c"}},
		{"unregister middle", func() { r.Unregister(b) }, []string{"a", "c"}},
		{"register d", func() { r.Register(d) }, []string{"a", "c", "d"}},
		{"re-register b goes last", func() { r.Register(b) }, []string{"a", "c", "d", "b"}},
		{"duplicate register ignored", func() { r.Register(a) }, []string{"a", "c", "d", "b"}},
		{"unregister unknown ignored", func() { r.Unregister(newObject(tr, "x")) }, []string{"a", "c", "d", "b"}},
		{"unregister nil ignored", func() { r.Unregister(nil) }, []string{"a", "c", "d", "b"}},
		{"unregister first", func() { r.Unregister(a) }, []string{"c", "d", "b"}},
	}

	for _, tt := range tests {
		tt.op()
		got := names(r)
		if !slices.Equal(got, tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
		if r.Count() != len(tt.want) {
			t.Fatalf("%s: Count = %d, want %d", tt.name, r.Count(), len(tt.want))
		}
	}
}

func TestRegistry_ForEachReverse(t *testing.T) {
	tr := &trace{}
	r := New[object]("objects")
	for _, n := range []string{"a", "b", "c"} {
		r.Register(newObject(tr, n))
	}

	var got []string
	r.ForEachReverse(func(o *object) { got = append(got, o.Name()) })
	if !slices.Equal(got, []string{"c", "b", "a"}) {
		t.Fatalf("got %v", got)
	}
}

func TestRegistry_UnregisterDuringIteration(t *testing.T) {
	tr := &trace{}
	r := New[object]("objects")
	objs := []*object{newObject(tr, "a"), newObject(tr, "b"), newObject(tr, "c")}
	for _, o := range objs {
		r.Register(o)
	}

	visited := 0
	r.ForEach(func(o *object) {
		visited++
		r.Unregister(o)
	})
	if visited != 3 || r.Count() != 0 {
		t.Fatalf("visited %d, count %d", visited, r.Count())
	}
}

func TestRegistry_ContextLossScenario(t *testing.T) {
	tr := &trace{}
	r := New[object]("objects")
	a, b, c := newObject(tr, "a"), newObject(tr, "b"), newObject(tr, "c")
	for _, o := range []*object{a, b, c} {
		r.Register(o)
		if err := o.Init("p-" + o.Name()); err != nil {
			t.Fatal(err)
		}
	}
	tr.events = nil

	if n := r.DeInitAll(); n != 3 {
		t.Fatalf("DeInitAll released %d, want 3", n)
	}
	if errs := r.ReInitAll(); len(errs) != 0 {
		t.Fatalf("ReInitAll: %v", errs)
	}

	want := []string{
		"release c", "release b", "release a",
		"init a:p-a", "init b:p-b", "init c:p-c",
	}
	if !slices.Equal(tr.events, want) {
		t.Fatalf("events = %v, want %v", tr.events, want)
	}
	for _, o := range []*object{a, b, c} {
		p, _ := o.Params()
		if !o.Initialized() || p != "p-"+o.Name() {
			t.Fatalf("%s: initialized=%v params=%q", o.Name(), o.Initialized(), p)
		}
	}
}

func TestRegistry_WeakEntries(t *testing.T) {
	r := New[object]("objects")
	keep := newObject(&trace{}, "keep")
	r.Register(keep)
	registerGarbage(r)

	for i := 0; i < 5 && r.Count() > 1; i++ {
		runtime.GC()
	}
	if got := names(r); !slices.Equal(got, []string{"keep"}) {
		t.Fatalf("collected objects should leave the registry, got %v", got)
	}
	runtime.KeepAlive(keep)
}

//go:noinline
func registerGarbage(r *Registry[object, *object]) {
	for i := 0; i < 3; i++ {
		r.Register(newObject(&trace{}, "garbage"))
	}
}

func TestGroup_Order(t *testing.T) {
	tr := &trace{}
	first := New[object]("first")
	second := New[object]("second")
	objs := map[string]*object{}
	for _, n := range []string{"a1", "a2"} {
		objs[n] = newObject(tr, n)
		first.Register(objs[n])
	}
	for _, n := range []string{"b1", "b2"} {
		objs[n] = newObject(tr, n)
		second.Register(objs[n])
	}
	for _, o := range objs {
		_ = o.Init("x")
	}
	tr.events = nil

	g := NewGroup(nil)
	g.Attach(first, second)
	if g.Count() != 4 {
		t.Fatalf("Count = %d", g.Count())
	}

	if n := g.DeInitAll(); n != 4 {
		t.Fatalf("DeInitAll = %d", n)
	}
	if err := g.ReInitAll(); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"release b2", "release b1", "release a2", "release a1",
		"init a1:x", "init a2:x", "init b1:x", "init b2:x",
	}
	if !slices.Equal(tr.events, want) {
		t.Fatalf("events = %v, want %v", tr.events, want)
	}
}

func TestGroup_ReInitAllCombinesFailures(t *testing.T) {
	tr := &trace{fail: map[string]bool{}}
	r := New[object]("objects")
	var objs []*object
	for _, n := range []string{"a", "b", "c"} {
		o := newObject(tr, n)
		objs = append(objs, o)
		r.Register(o)
		_ = o.Init("x")
	}

	g := NewGroup(nil)
	g.Attach(r)
	g.DeInitAll()

	tr.fail["a"] = true
	tr.fail["c"] = true
	err := g.ReInitAll()
	if err == nil {
		t.Fatal("expected combined error")
	}
	if !objs[1].Initialized() {
		t.Fatal("b should be restored even though a failed first")
	}
	if objs[0].Initialized() || objs[2].Initialized() {
		t.Fatal("failed objects should stay uninitialized")
	}
}
