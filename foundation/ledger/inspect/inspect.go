// Package inspect implements the request inspection gate. A request is
// checked twice: once purely by the size of its still-undecoded payload, and
// once per-field after a single decode. The point of the two phases is to
// bound the worst-case compute a single inbound request can burn before the
// ledger does any real work with it.
package inspect

import (
	"fmt"

	"github.com/tesseralabs/ledger/foundation/ledger/limits"
)

// Check is a single validation step run against an operation's decoded
// arguments. Checks run in their declared order and the first failure wins.
type Check func(args any, l limits.Limits) error

// Rule binds an operation name to the ordered set of checks that must pass
// for that operation's decoded arguments. Prototype constructs a zero value
// the raw payload can be decoded into.
type Rule struct {
	Operation string
	Prototype func() any
	Checks    []Check
}

// Pipeline orchestrates the raw-size gate and the per-operation validation
// table. It is constructed once at service start and read-only thereafter.
type Pipeline struct {
	limits limits.Limits
	rules  map[string]Rule
}

// New constructs a pipeline from the set of operation rules.
func New(l limits.Limits, rules ...Rule) (*Pipeline, error) {
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("validating limits: %w", err)
	}

	table := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		if _, exists := table[rule.Operation]; exists {
			return nil, fmt.Errorf("duplicate rule for operation %q", rule.Operation)
		}
		table[rule.Operation] = rule
	}

	return &Pipeline{
		limits: l,
		rules:  table,
	}, nil
}

// Limits returns the bounds the pipeline was constructed with.
func (p *Pipeline) Limits() limits.Limits {
	return p.limits
}

// Gate rejects a request purely by the size of its undecoded payload. It
// must run before any decoding since decoding cost scales with payload size.
func (p *Pipeline) Gate(raw []byte) error {
	if len(raw) > p.limits.MaxRawRequestBytes {
		return fmt.Errorf("request exceeds %d bytes", p.limits.MaxRawRequestBytes)
	}

	return nil
}

// Prototype returns a freshly constructed argument value for the specified
// operation such that the operation's raw payload can be decoded into it.
// The second return is false when no rule is registered for the operation.
func (p *Pipeline) Prototype(operation string) (any, bool) {
	rule, exists := p.rules[operation]
	if !exists {
		return nil, false
	}

	return rule.Prototype(), true
}

// Admit decides whether an inbound request may execute. The decode thunk is
// only forced once the gate has passed and a rule exists for the operation,
// so an oversized payload is refused without paying any decode cost.
// Operations without a registered rule carry only bounded values and are
// admitted on the strength of the gate alone.
func (p *Pipeline) Admit(operation string, raw []byte, decode func() (any, error)) bool {
	if err := p.Gate(raw); err != nil {
		return false
	}

	rule, exists := p.rules[operation]
	if !exists {
		return true
	}

	args, err := decode()
	if err != nil {
		return false
	}

	for _, check := range rule.Checks {
		if err := check(args, p.limits); err != nil {
			return false
		}
	}

	return true
}

// Guard runs the operation's checks against already-decoded arguments and
// returns the first rejection reason. It covers call paths the admission
// filter cannot reach, where the invocation arrives from another service
// rather than an external caller.
func (p *Pipeline) Guard(operation string, args any) error {
	rule, exists := p.rules[operation]
	if !exists {
		return nil
	}

	for _, check := range rule.Checks {
		if err := check(args, p.limits); err != nil {
			return err
		}
	}

	return nil
}
