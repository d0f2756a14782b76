package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/wasm-stage/gfx"
	"github.com/wippyai/wasm-stage/window"
	"github.com/wippyai/wasm-stage/window/headless"
)

func startWindow(t *testing.T) (*window.Window, *headless.Backend) {
	t.Helper()
	b := headless.New()
	w := window.New(b)
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	t.Cleanup(func() {
		_ = w.Quit()
		<-done
	})
	return w, b
}

func settle(t *testing.T, w *window.Window) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for range 2 {
		if err := w.Do(ctx, func(*gfx.Device) error { return nil }); err != nil {
			t.Fatal(err)
		}
	}
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func selectAction(t *testing.T, m *inspectorModel, name string) {
	t.Helper()
	for i, a := range actions {
		if a.name == name {
			for range i {
				m.Update(key(tea.KeyDown))
			}
			return
		}
	}
	t.Fatalf("no action %q", name)
}

func TestInspector_SendsCommandWithArgs(t *testing.T) {
	w, b := startWindow(t)
	m := newInspectorModel(context.Background(), w, "guest.wasm")

	selectAction(t, m, "title")
	m.Update(key(tea.KeyEnter))
	if m.state != stateInput || len(m.inputs) != 1 {
		t.Fatalf("state = %d inputs = %d", m.state, len(m.inputs))
	}
	m.inputs[0].SetValue("from inspector")

	_, cmd := m.Update(key(tea.KeyEnter))
	m.Update(cmd())
	if m.state != stateResult || m.err != nil {
		t.Fatalf("state = %d err = %v", m.state, m.err)
	}
	settle(t, w)
	if title, _, _ := b.State(); title != "from inspector" {
		t.Fatalf("title = %q", title)
	}

	m.Update(key(tea.KeyEnter))
	if m.state != stateSelect || m.inputs != nil {
		t.Fatal("enter on a result should return to the action list")
	}
}

func TestInspector_BadArgs(t *testing.T) {
	w, b := startWindow(t)
	m := newInspectorModel(context.Background(), w, "")

	selectAction(t, m, "resize")
	m.Update(key(tea.KeyEnter))
	m.inputs[0].SetValue("wide")
	m.inputs[1].SetValue("10")
	_, cmd := m.Update(key(tea.KeyEnter))
	m.Update(cmd())

	if m.err == nil || !strings.Contains(m.View(), "not a number") {
		t.Fatalf("view = %s", m.View())
	}
	settle(t, w)
	if _, mode, _ := b.State(); mode.Width != 800 {
		t.Fatal("invalid args must not reach the window")
	}
}

func TestInspector_Paste(t *testing.T) {
	w, _ := startWindow(t)
	_ = w.SetClipboard("clip")
	m := newInspectorModel(context.Background(), w, "")

	selectAction(t, m, "paste")
	_, cmd := m.Update(key(tea.KeyEnter))
	m.Update(cmd())
	if m.result != `"clip"` {
		t.Fatalf("result = %q err = %v", m.result, m.err)
	}
}

func TestInspector_TickRefreshesMode(t *testing.T) {
	w, _ := startWindow(t)
	m := newInspectorModel(context.Background(), w, "")

	_ = w.Resize(320, 200)
	settle(t, w)
	m.Update(tickMsg{})
	if m.mode.Width != 320 || !strings.Contains(m.View(), "320x200") {
		t.Fatalf("view = %s", m.View())
	}
}

func TestIntPair(t *testing.T) {
	tests := []struct {
		args    []string
		x, y    int
		wantErr bool
	}{
		{[]string{"1", "2"}, 1, 2, false},
		{[]string{" 10 ", "-3"}, 10, -3, false},
		{[]string{"a", "2"}, 0, 0, true},
		{[]string{"1", ""}, 0, 0, true},
	}
	for _, tt := range tests {
		x, y, err := intPair(tt.args)
		if (err != nil) != tt.wantErr || x != tt.x || y != tt.y {
			t.Errorf("intPair(%q) = %d, %d, %v", tt.args, x, y, err)
		}
	}
}
