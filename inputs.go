package taskflow

import (
	"fmt"
	"sort"
	"strings"
)

// Ref is a dependency reference: the output store key of a value produced by
// an earlier step, "<task>.<key>" or "<group>.<task>.<key>".
type Ref string

// ParseRef validates the reference form
func ParseRef(s string) (Ref, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("reference %q must have the form <task>.<key>", s)
	}
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("reference %q has an empty segment", s)
		}
	}
	return Ref(s), nil
}

// Namespace returns everything before the last separator (the producing task or group member)
func (r Ref) Namespace() string {
	i := strings.LastIndex(string(r), ".")
	if i < 0 {
		return ""
	}
	return string(r)[:i]
}

// Key returns the output key part
func (r Ref) Key() string {
	i := strings.LastIndex(string(r), ".")
	return string(r)[i+1:]
}

// Producer returns the first segment: the task or group whose step must run first
func (r Ref) Producer() string {
	s := string(r)
	if i := strings.Index(s, "."); i >= 0 {
		return s[:i]
	}
	return s
}

// Source is where an input value comes from: a literal or a reference
type Source struct {
	literal Value
	ref     Ref
	isRef   bool
}

// Lit is a literal source
func Lit(v Value) Source {
	return Source{literal: v}
}

// FromRef is a reference source. Malformed references are kept as-is and fail
// resolution; builder validation reports them up front.
func FromRef(ref string) Source {
	return Source{ref: Ref(ref), isRef: true}
}

// IsRef reports whether the source is a dependency reference
func (s Source) IsRef() bool {
	return s.isRef
}

// Ref returns the reference, if any
func (s Source) Ref() (Ref, bool) {
	return s.ref, s.isRef
}

func (s Source) String() string {
	if s.isRef {
		return "ref(" + string(s.ref) + ")"
	}
	return s.literal.String()
}

// InputDecl declares one task input and whether it is required
type InputDecl struct {
	Key      string
	Source   Source
	Optional bool
}

// Required declares an input that must be present and non-null before the task runs
func Required(key string, src Source) InputDecl {
	return InputDecl{Key: key, Source: src}
}

// OptionalInput declares an input the task can run without
func OptionalInput(key string, src Source) InputDecl {
	return InputDecl{Key: key, Source: src, Optional: true}
}

// Inputs holds resolved input values for one task invocation
type Inputs struct {
	values map[string]Optional[Value]
}

// NewInputs builds resolved inputs from plain values (useful for tests and direct calls)
func NewInputs(vals Values) Inputs {
	in := Inputs{values: make(map[string]Optional[Value], len(vals))}
	for k, v := range vals {
		in.values[k] = presentValue(v)
	}
	return in
}

// Lookup returns the resolved value for key, absent when unresolved or null
func (in Inputs) Lookup(key string) Optional[Value] {
	v, ok := in.values[key]
	if !ok {
		return None[Value]()
	}
	return v
}

// Get returns the value for key, or Null
func (in Inputs) Get(key string) Value {
	return in.Lookup(key).OrElse(Null())
}

// Has reports whether key resolved to a non-null value
func (in Inputs) Has(key string) bool {
	return in.Lookup(key).IsSet()
}

// Len returns the number of declared keys
func (in Inputs) Len() int {
	return len(in.values)
}

// Keys returns the declared keys in sorted order
func (in Inputs) Keys() []string {
	keys := make([]string, 0, len(in.values))
	for k := range in.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns only the present values
func (in Inputs) Values() Values {
	out := make(Values, len(in.values))
	for k, v := range in.values {
		if val, ok := v.Get(); ok {
			out[k] = val
		}
	}
	return out
}

func presentValue(v Value) Optional[Value] {
	if v.IsNull() {
		return None[Value]()
	}
	return Some(v)
}

// OutputReader is read access to the output store
type OutputReader interface {
	Lookup(key string) Optional[Value]
}

// Resolve resolves each declaration against the reader at call time
func Resolve(decls []InputDecl, outputs OutputReader) Inputs {
	in := Inputs{values: make(map[string]Optional[Value], len(decls))}
	for _, d := range decls {
		if ref, ok := d.Source.Ref(); ok {
			in.values[d.Key] = outputs.Lookup(string(ref))
			continue
		}
		in.values[d.Key] = presentValue(d.Source.literal)
	}
	return in
}

// HasRequiredInputs reports whether every non-optional declaration resolved
func HasRequiredInputs(decls []InputDecl, in Inputs) bool {
	return len(MissingInputs(decls, in)) == 0
}

// MissingInputs lists the required keys that did not resolve
func MissingInputs(decls []InputDecl, in Inputs) []string {
	var missing []string
	for _, d := range decls {
		if d.Optional {
			continue
		}
		if !in.Has(d.Key) {
			missing = append(missing, d.Key)
		}
	}
	return missing
}
