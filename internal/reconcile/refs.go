package reconcile

import (
	"strings"

	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

// ReferenceProvider resolves a display name to an existing entity.
type ReferenceProvider interface {
	FindByName(name string) (entity.Ref, bool)
}

// NameIndex is an immutable, case-insensitive exact-name index over a snapshot.
// When two entries share a name the first one wins.
type NameIndex struct {
	byName map[string]entity.Ref
}

func NewNameIndex(refs ...entity.Ref) *NameIndex {
	idx := &NameIndex{byName: make(map[string]entity.Ref, len(refs))}
	for _, r := range refs {
		key := nameKey(r.Name)
		if key == "" {
			continue
		}
		if _, exists := idx.byName[key]; !exists {
			idx.byName[key] = r
		}
	}
	return idx
}

func (n *NameIndex) FindByName(name string) (entity.Ref, bool) {
	if n == nil {
		return entity.Ref{}, false
	}
	r, ok := n.byName[nameKey(name)]
	return r, ok
}

func (n *NameIndex) Len() int {
	if n == nil {
		return 0
	}
	return len(n.byName)
}

func nameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Refs bundles the providers a sample import resolves against.
type Refs struct {
	Projects  ReferenceProvider
	Tasks     ReferenceProvider
	Personnel ReferenceProvider
}

// AnalyteSet restricts the analyte column to a known catalog.
type AnalyteSet interface {
	HasAnalyte(name string) bool
	Names() []string
}

type analyteSet struct {
	names []string
	keys  map[string]struct{}
}

// NewAnalyteSet builds a case-insensitive analyte catalog.
func NewAnalyteSet(names ...string) AnalyteSet {
	s := &analyteSet{keys: map[string]struct{}{}}
	for _, n := range names {
		k := nameKey(n)
		if k == "" {
			continue
		}
		if _, ok := s.keys[k]; ok {
			continue
		}
		s.keys[k] = struct{}{}
		s.names = append(s.names, strings.TrimSpace(n))
	}
	return s
}

func (s *analyteSet) HasAnalyte(name string) bool {
	_, ok := s.keys[nameKey(name)]
	return ok
}

func (s *analyteSet) Names() []string { return s.names }
