package lifecycle

import (
	"errors"
	"testing"

	wserrors "github.com/wippyai/wasm-stage/errors"
)

type sizeParams struct {
	W, H int
}

type fakeAlloc struct {
	allocErr   error
	releaseErr error
	allocs     []sizeParams
	releases   int
	live       int
	panicOnRel bool
}

func (a *fakeAlloc) Allocate(p sizeParams) error {
	if a.allocErr != nil {
		return a.allocErr
	}
	a.allocs = append(a.allocs, p)
	a.live++
	return nil
}

func (a *fakeAlloc) Release() error {
	a.releases++
	a.live--
	if a.panicOnRel {
		panic("driver crashed")
	}
	return a.releaseErr
}

func TestBase_DeInitUninitialized(t *testing.T) {
	alloc := &fakeAlloc{}
	b := New[sizeParams]("tex", alloc)

	if b.DeInit() {
		t.Fatal("DeInit on uninitialized object should return false")
	}
	if alloc.releases != 0 {
		t.Fatalf("releases = %d, want 0", alloc.releases)
	}
	if b.State() != StateUninitialized {
		t.Fatalf("state = %v", b.State())
	}
}

func TestBase_DeInitIdempotent(t *testing.T) {
	alloc := &fakeAlloc{}
	b := New[sizeParams]("tex", alloc)

	if err := b.Init(sizeParams{64, 32}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !b.DeInit() {
		t.Fatal("first DeInit should return true")
	}
	if b.DeInit() {
		t.Fatal("second DeInit should return false")
	}
	if alloc.releases != 1 {
		t.Fatalf("releases = %d, want 1", alloc.releases)
	}
	p, ok := b.Params()
	if !ok || p != (sizeParams{64, 32}) {
		t.Fatalf("params not retained: %v %v", p, ok)
	}
}

func TestBase_ReInitBeforeInit(t *testing.T) {
	alloc := &fakeAlloc{}
	b := New[sizeParams]("tex", alloc)

	if err := b.ReInit(); err != nil {
		t.Fatalf("ReInit: %v", err)
	}
	if len(alloc.allocs) != 0 {
		t.Fatal("ReInit before Init must not allocate")
	}
	if b.Initialized() {
		t.Fatal("object should stay uninitialized")
	}
}

func TestBase_ReInitRestoresParams(t *testing.T) {
	alloc := &fakeAlloc{}
	b := New[sizeParams]("tex", alloc)

	if err := b.Init(sizeParams{8, 8}); err != nil {
		t.Fatal(err)
	}
	b.DeInit()
	if err := b.ReInit(); err != nil {
		t.Fatalf("ReInit: %v", err)
	}

	if !b.Initialized() {
		t.Fatal("object should be initialized after ReInit")
	}
	if len(alloc.allocs) != 2 || alloc.allocs[1] != (sizeParams{8, 8}) {
		t.Fatalf("allocs = %v", alloc.allocs)
	}

	// ReInit on an initialized object leaves it alone.
	if err := b.ReInit(); err != nil {
		t.Fatal(err)
	}
	if len(alloc.allocs) != 2 {
		t.Fatalf("allocs = %d, want 2", len(alloc.allocs))
	}
}

func TestBase_InitFailure(t *testing.T) {
	alloc := &fakeAlloc{allocErr: errors.New("out of video memory")}
	b := New[sizeParams]("tex", alloc)

	err := b.Init(sizeParams{1 << 20, 1 << 20})
	if !errors.Is(err, wserrors.ErrCreation) {
		t.Fatalf("want creation error, got %v", err)
	}
	if !errors.Is(err, alloc.allocErr) {
		t.Fatal("creation error should wrap the allocator error")
	}
	var se *wserrors.Error
	if !errors.As(err, &se) || se.Value != (sizeParams{1 << 20, 1 << 20}) {
		t.Fatalf("creation error should carry params, got %+v", se)
	}
	if _, ok := b.Params(); ok {
		t.Fatal("failed Init must not record params")
	}
	if err := b.ReInit(); err != nil {
		t.Fatal("ReInit after a failed first Init is a no-op")
	}
}

func TestBase_InitWhileInitializedReleasesFirst(t *testing.T) {
	alloc := &fakeAlloc{}
	b := New[sizeParams]("tex", alloc)

	_ = b.Init(sizeParams{1, 1})
	_ = b.Init(sizeParams{2, 2})

	if alloc.live != 1 {
		t.Fatalf("live = %d, want 1", alloc.live)
	}
	if p, _ := b.Params(); p != (sizeParams{2, 2}) {
		t.Fatalf("params = %v", p)
	}
}

func TestBase_DestroySwallowsFailures(t *testing.T) {
	tests := []struct {
		name  string
		alloc *fakeAlloc
	}{
		{"release error", &fakeAlloc{releaseErr: errors.New("device gone")}},
		{"release panic", &fakeAlloc{panicOnRel: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New[sizeParams]("tex", tt.alloc)
			if err := b.Init(sizeParams{1, 1}); err != nil {
				t.Fatal(err)
			}

			hooked := 0
			b.OnDestroy(func() { hooked++ })
			b.OnDestroy(func() { panic("hook") })

			b.Destroy()
			b.Destroy()

			if b.State() != StateDestroyed {
				t.Fatalf("state = %v", b.State())
			}
			if hooked != 1 {
				t.Fatalf("hook ran %d times, want 1", hooked)
			}
			if tt.alloc.releases != 1 {
				t.Fatalf("releases = %d, want 1", tt.alloc.releases)
			}
		})
	}
}

func TestBase_InitAfterDestroy(t *testing.T) {
	b := New[sizeParams]("tex", &fakeAlloc{})
	b.Destroy()

	err := b.Init(sizeParams{1, 1})
	var se *wserrors.Error
	if !errors.As(err, &se) || se.Kind != wserrors.KindClosed {
		t.Fatalf("want closed error, got %v", err)
	}
}

func TestBase_OnDestroyAfterDestroyRunsImmediately(t *testing.T) {
	b := New[sizeParams]("tex", &fakeAlloc{})
	b.Destroy()

	ran := false
	b.OnDestroy(func() { ran = true })
	if !ran {
		t.Fatal("hook registered after Destroy should run immediately")
	}
}
