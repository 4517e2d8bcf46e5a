package engine

import (
	"github.com/toyz/docmeta/internal/annotations"
)

// Occurrence is one resolved annotation fragment
type Occurrence struct {
	Value      interface{}             // typed instance or *annotations.GenericAnnotation
	Attributes annotations.AttributeMap // attributes after child and type-name substitution
	Typed      bool                    // Value was hydrated from a registered schema
	Line       int                     // line of the fragment in its comment block

	fragment annotations.Fragment
	children map[string]interface{}
}

// Generic returns the occurrence as a generic annotation, if it is one
func (o *Occurrence) Generic() (*annotations.GenericAnnotation, bool) {
	g, ok := o.Value.(*annotations.GenericAnnotation)
	return g, ok
}

// Result groups every occurrence of one resolved annotation name on a
// declaration, in source order
type Result struct {
	Name string // resolved, usually fully-qualified, annotation name

	occurrences []*Occurrence
}

// Value returns the single resolved instance, or a []interface{} in source
// order when the annotation occurs more than once
func (r *Result) Value() interface{} {
	if len(r.occurrences) == 1 {
		return r.occurrences[0].Value
	}
	return r.Values()
}

// Values returns every resolved instance in source order
func (r *Result) Values() []interface{} {
	values := make([]interface{}, len(r.occurrences))
	for i, occ := range r.occurrences {
		values[i] = occ.Value
	}
	return values
}

// Occurrences returns the occurrences in source order
func (r *Result) Occurrences() []*Occurrence {
	return append([]*Occurrence(nil), r.occurrences...)
}

// IsList reports whether the annotation occurred more than once
func (r *Result) IsList() bool { return len(r.occurrences) > 1 }

// Len returns the number of occurrences
func (r *Result) Len() int { return len(r.occurrences) }

// Typed reports whether every occurrence was hydrated from a schema
func (r *Result) Typed() bool {
	for _, occ := range r.occurrences {
		if !occ.Typed {
			return false
		}
	}
	return len(r.occurrences) > 0
}

// Set is the ordered collection of results on one declaration, keyed by
// resolved name in order of first appearance. A Set is never modified once
// it has been returned; upgrades produce a new Set.
type Set struct {
	names   []string
	results map[string]*Result
}

func newSet() *Set {
	return &Set{results: make(map[string]*Result)}
}

// Get returns the result for a resolved name
func (s *Set) Get(name string) (*Result, bool) {
	if s == nil {
		return nil, false
	}
	r, ok := s.results[name]
	return r, ok
}

// Names returns the resolved names in order of first appearance
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Len returns the number of distinct resolved names
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Results returns the results in order of first appearance
func (s *Set) Results() []*Result {
	if s == nil {
		return nil
	}
	results := make([]*Result, 0, len(s.names))
	for _, name := range s.names {
		results = append(results, s.results[name])
	}
	return results
}

func (s *Set) add(name string, occ *Occurrence) {
	r, exists := s.results[name]
	if !exists {
		r = &Result{Name: name}
		s.results[name] = r
		s.names = append(s.names, name)
	}
	r.occurrences = append(r.occurrences, occ)
}

// replace returns a copy of s in which the result named old is swapped for
// r at the same position
func (s *Set) replace(old string, r *Result) *Set {
	out := &Set{
		names:   make([]string, 0, len(s.names)),
		results: make(map[string]*Result, len(s.results)),
	}
	for _, name := range s.names {
		if name == old {
			name = r.Name
			out.results[name] = r
		} else {
			out.results[name] = s.results[name]
		}
		out.names = append(out.names, name)
	}
	return out
}

// Declaration pairs a declaration key with its resolved annotations
type Declaration struct {
	Key         annotations.Key
	Annotations *Set
}
