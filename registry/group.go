package registry

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Pass is the kind-erased view of a Registry used for bulk passes.
type Pass interface {
	Name() string
	Count() int
	DeInitAll() int
	ReInitAll() []error
}

// Group orders registries of different kinds for context-loss handling.
// Registries attached later are treated as depending on earlier ones.
type Group struct {
	logger *zap.Logger
	passes []Pass
}

// NewGroup creates an empty group. A nil logger disables logging.
func NewGroup(logger *zap.Logger) *Group {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Group{logger: logger}
}

// Attach appends registries in dependency order.
func (g *Group) Attach(passes ...Pass) {
	g.passes = append(g.passes, passes...)
}

// Count returns the number of live objects across all registries.
func (g *Group) Count() int {
	n := 0
	for _, p := range g.passes {
		n += p.Count()
	}
	return n
}

// DeInitAll releases every object, last registry first and each registry
// in reverse registration order. Call it before the context is destroyed.
func (g *Group) DeInitAll() int {
	total := 0
	for i := len(g.passes) - 1; i >= 0; i-- {
		n := g.passes[i].DeInitAll()
		g.logger.Debug("registry released",
			zap.String("registry", g.passes[i].Name()),
			zap.Int("count", n))
		total += n
	}
	return total
}

// ReInitAll recreates every object in attach and registration order. Call
// it after the context has been recreated. All objects are attempted; the
// failures are combined into one error.
func (g *Group) ReInitAll() error {
	var err error
	for _, p := range g.passes {
		errs := p.ReInitAll()
		g.logger.Debug("registry restored",
			zap.String("registry", p.Name()),
			zap.Int("count", p.Count()),
			zap.Int("failed", len(errs)))
		err = multierr.Append(err, multierr.Combine(errs...))
	}
	return err
}
