// Package config loads the stage configuration from HCL.
//
//	window {
//	  title      = "demo"
//	  backend    = "terminal"
//	  width      = 1024
//	  height     = 768
//	  fullscreen = false
//	}
//
//	script {
//	  path         = "${env.HOME}/game.wasm"
//	  memory_pages = 256
//	}
//
//	queue {
//	  event_buffer = 64
//	}
//
//	log {
//	  level  = "debug"
//	  format = "console"
//	}
//
// Every block and attribute is optional. The process environment is
// available as the env map.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"

	"github.com/wippyai/wasm-stage/errors"
	"github.com/wippyai/wasm-stage/window"
)

// Window backends.
const (
	BackendHeadless = "headless"
	BackendTerminal = "terminal"
)

// File is a decoded configuration file.
type File struct {
	Window *Window `hcl:"window,block"`
	Script *Script `hcl:"script,block"`
	Queue  *Queue  `hcl:"queue,block"`
	Log    *Log    `hcl:"log,block"`
}

// Window configures the window and its backend.
type Window struct {
	Title      string `hcl:"title,optional"`
	Backend    string `hcl:"backend,optional"`
	Width      int    `hcl:"width,optional"`
	Height     int    `hcl:"height,optional"`
	IconSize   int    `hcl:"icon_size,optional"`
	BudgetMB   int    `hcl:"budget_mb,optional"`
	Fullscreen bool   `hcl:"fullscreen,optional"`
}

// Mode returns the initial window mode.
func (w *Window) Mode() window.Mode {
	return window.Mode{Width: w.Width, Height: w.Height, Fullscreen: w.Fullscreen}
}

// Budget returns the graphics memory budget in bytes, 0 for unlimited.
func (w *Window) Budget() uint64 {
	return uint64(w.BudgetMB) << 20
}

// Script configures the guest module.
type Script struct {
	Path        string `hcl:"path,optional"`
	Name        string `hcl:"name,optional"`
	MemoryPages int    `hcl:"memory_pages,optional"`
	WASI        bool   `hcl:"wasi,optional"`
}

// Queue configures the window command queue and event delivery.
type Queue struct {
	PollInterval string `hcl:"poll_interval,optional"`
	EventBuffer  int    `hcl:"event_buffer,optional"`
}

// Interval returns the terminal poll interval. Validate guarantees it
// parses.
func (q *Queue) Interval() time.Duration {
	d, _ := time.ParseDuration(q.PollInterval)
	return d
}

// Log configures the process logger.
type Log struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	f := &File{}
	f.applyDefaults()
	return f
}

// Load reads and decodes the file at path.
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
	}
	return Parse(src, path, environ())
}

// Parse decodes src, naming it filename in diagnostics. env is exposed to
// expressions as the env map.
func Parse(src []byte, filename string, env map[string]string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, diags, "parse "+filename)
	}

	var f File
	diags = gohcl.DecodeBody(file.Body, evalContext(env), &f)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, diags, "decode "+filename)
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func evalContext(env map[string]string) *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vals[k] = cty.StringVal(v)
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(vals) > 0 {
		envVal = cty.MapVal(vals)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

func (f *File) applyDefaults() {
	if f.Window == nil {
		f.Window = &Window{}
	}
	if f.Script == nil {
		f.Script = &Script{}
	}
	if f.Queue == nil {
		f.Queue = &Queue{}
	}
	if f.Log == nil {
		f.Log = &Log{}
	}

	w := f.Window
	if w.Backend == "" {
		w.Backend = BackendTerminal
	}
	if w.Width == 0 {
		w.Width = 800
	}
	if w.Height == 0 {
		w.Height = 600
	}
	if w.IconSize == 0 {
		w.IconSize = window.DefaultIconSize
	}
	if f.Script.Name == "" {
		f.Script.Name = "guest"
	}
	if f.Queue.EventBuffer == 0 {
		f.Queue.EventBuffer = 64
	}
	if f.Queue.PollInterval == "" {
		f.Queue.PollInterval = "100ms"
	}
	if f.Log.Level == "" {
		f.Log.Level = "info"
	}
	if f.Log.Format == "" {
		f.Log.Format = "console"
	}
}

// Validate reports every invalid setting.
func (f *File) Validate() error {
	var err error
	invalid := func(path, format string, args ...any) {
		err = multierr.Append(err, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(strings.Split(path, ".")...).
			Detail(format, args...).
			Build())
	}

	w := f.Window
	switch w.Backend {
	case BackendHeadless, BackendTerminal:
	default:
		invalid("window.backend", "unknown backend %q", w.Backend)
	}
	if w.Width < 0 || w.Height < 0 {
		invalid("window.size", "size %dx%d must be positive", w.Width, w.Height)
	}
	if w.IconSize < 1 || w.IconSize > 1024 {
		invalid("window.icon_size", "icon size %d out of range 1..1024", w.IconSize)
	}
	if w.BudgetMB < 0 {
		invalid("window.budget_mb", "budget must not be negative")
	}
	if p := f.Script.MemoryPages; p < 0 || p > 65536 {
		invalid("script.memory_pages", "%d pages out of range 0..65536", p)
	}
	if f.Queue.EventBuffer < 0 {
		invalid("queue.event_buffer", "buffer must not be negative")
	}
	if d, perr := time.ParseDuration(f.Queue.PollInterval); perr != nil || d <= 0 {
		invalid("queue.poll_interval", "%q is not a positive duration", f.Queue.PollInterval)
	}
	switch f.Log.Format {
	case "console", "json":
	default:
		invalid("log.format", "unknown format %q", f.Log.Format)
	}
	if _, lerr := parseLevel(f.Log.Level); lerr != nil {
		invalid("log.level", "%v", lerr)
	}
	return err
}
