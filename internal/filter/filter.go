// Package filter evaluates an optional CEL expression against events at
// ingestion time. Producers pass opaque payloads; the filter exposes just
// enough of them for sampling and suppression rules without the queue ever
// interpreting payload contents itself.
package filter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// Filter wraps a compiled CEL program. The zero expression disables it and
// Keep always returns true.
//
// Available variables:
//   - kind   (string)  event kind
//   - size   (int)     payload size in bytes
//   - json   (dyn)     parsed payload, when it is valid JSON
//   - now_ms (int)     current time in epoch milliseconds
type Filter struct {
	prog    cel.Program
	enabled bool
}

// New compiles expr. An empty expression yields a disabled filter.
func New(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("size", cel.IntType),
		cel.Variable("json", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Enabled reports whether a non-empty expression is compiled in.
func (f Filter) Enabled() bool { return f.enabled }

// Keep evaluates the expression against an event. A disabled filter keeps
// everything; an evaluation error drops the event.
func (f Filter) Keep(kind string, payload []byte) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal(payload, &jsonObj)
	out, _, err := f.prog.Eval(map[string]any{
		"kind":   kind,
		"size":   int64(len(payload)),
		"json":   jsonObj,
		"now_ms": time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
