package workflow

import (
	"fmt"
	"sort"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// Guard reports whether actor may take a transition on req. A nil Guard
// always passes.
type Guard func(actor *entity.User, req *entity.Request) bool

type edge struct {
	to    State
	guard Guard
}

// Chain is a frozen table of level transitions. It is safe for concurrent use.
type Chain struct {
	edges map[State]map[Trigger]edge
}

// ChainBuilder collects transitions until Build freezes them.
type ChainBuilder struct {
	edges map[State]map[Trigger]edge
}

// NewChainBuilder returns an empty builder
func NewChainBuilder() *ChainBuilder {
	return &ChainBuilder{edges: make(map[State]map[Trigger]edge)}
}

// Allow adds from --trigger--> to. It panics on unknown levels, on a
// transition out of a terminal level and on a duplicate trigger, since
// those are programming errors in the chain definition.
func (b *ChainBuilder) Allow(from State, trigger Trigger, to State, guard Guard) *ChainBuilder {
	if !from.IsValid() || !to.IsValid() {
		panic(fmt.Sprintf("workflow: invalid transition %s -> %s", from, to))
	}
	if from.IsTerminal() {
		panic(fmt.Sprintf("workflow: %s is terminal", from))
	}

	out, ok := b.edges[from]
	if !ok {
		out = make(map[Trigger]edge)
		b.edges[from] = out
	}
	if _, dup := out[trigger]; dup {
		panic(fmt.Sprintf("workflow: %s already handles %s", from, trigger))
	}
	out[trigger] = edge{to: to, guard: guard}
	return b
}

// Build returns a Chain that later Allow calls cannot change
func (b *ChainBuilder) Build() *Chain {
	edges := make(map[State]map[Trigger]edge, len(b.edges))
	for from, out := range b.edges {
		cp := make(map[Trigger]edge, len(out))
		for trigger, e := range out {
			cp[trigger] = e
		}
		edges[from] = cp
	}
	return &Chain{edges: edges}
}

// Next resolves the level req reaches when actor fires trigger. req is not
// modified.
func (c *Chain) Next(actor *entity.User, req *entity.Request, trigger Trigger) (State, error) {
	if req.IsFinalized() {
		return "", fmt.Errorf("%w: request %s is %s", ErrAlreadyFinalized, req.ID, req.Status)
	}
	if !req.CurrentLevel.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, req.CurrentLevel)
	}

	e, ok := c.edges[req.CurrentLevel][trigger]
	if !ok {
		return "", fmt.Errorf("%w: %s not allowed at %s", ErrInvalidTransition, trigger, req.CurrentLevel)
	}
	if e.guard != nil && !e.guard(actor, req) {
		return "", fmt.Errorf("%w: %s cannot %s at level %s",
			ErrUnauthorized, describe(actor), trigger, req.CurrentLevel)
	}
	return e.to, nil
}

// Actions lists, in name order, the triggers actor may fire on req right now
func (c *Chain) Actions(actor *entity.User, req *entity.Request) []Trigger {
	if req.IsFinalized() {
		return nil
	}

	var out []Trigger
	for trigger, e := range c.edges[req.CurrentLevel] {
		if e.guard == nil || e.guard(actor, req) {
			out = append(out, trigger)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func describe(actor *entity.User) string {
	if actor == nil {
		return "anonymous"
	}
	return fmt.Sprintf("%s (%s)", actor.ID, actor.Role)
}
