/*
Package entry holds the in-memory representation of a directory subtree
once it has been pulled out of a server and keyed relative to its search
base: the Entry type and the EntryStore that indexes a full tree of them
by relative DN so the Differ can look either side up in constant time.

There is no teacher analogue for this exact shape (go-dirsyn models
attribute-level grammar, not whole entries), so the design follows the
reconciliation pipeline's own data model, using [dn.StripSuffix] for the
key normalization go-dirsyn already exercises in the DN package.

[dn.StripSuffix]: https://pkg.go.dev/github.com/taladar/sync-ldap-subtrees/dn
*/
package entry

import (
	"sort"

	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"

	"github.com/taladar/sync-ldap-subtrees/dn"
	"github.com/taladar/sync-ldap-subtrees/internal/logging"
)

var log = logging.RootLogger.Sublogger("entry")

// Entry is one directory entry, keyed by its DN relative to the search
// base it was read under. Attribute values are split into text and binary
// buckets; an attribute appears in exactly one bucket, never both.
type Entry struct {
	RelativeDN  string
	TextAttrs   map[string][]string
	BinaryAttrs map[string][][]byte
}

func newEntry(relativeDN string) *Entry {
	return &Entry{
		RelativeDN:  relativeDN,
		TextAttrs:   map[string][]string{},
		BinaryAttrs: map[string][][]byte{},
	}
}

// Store indexes an entire subtree by relative DN.
type Store struct {
	Base    string
	entries map[string]*Entry
}

// NewStore creates an empty Store rooted at base.
func NewStore(base string) *Store {
	return &Store{Base: base, entries: map[string]*Entry{}}
}

// Get returns the entry stored at relativeDN, if any.
func (s *Store) Get(relativeDN string) (*Entry, bool) {
	e, ok := s.entries[relativeDN]
	return e, ok
}

// Put inserts or replaces the entry at relativeDN.
func (s *Store) Put(e *Entry) { s.entries[e.RelativeDN] = e }

// RelativeDNs returns every relative DN currently indexed, in the
// ancestor-before-descendant order the planner relies on for Add
// sequencing (P5).
func (s *Store) RelativeDNs() []string {
	parsed := make(map[string]*dn.DN, len(s.entries))
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
		d, err := dn.Parse(k)
		if err != nil {
			d = &dn.DN{}
		}
		parsed[k] = d
	}
	sort.Slice(keys, func(i, j int) bool {
		return dn.Less(parsed[keys[i]], parsed[keys[j]])
	})
	return keys
}

// Len reports how many entries are indexed.
func (s *Store) Len() int { return len(s.entries) }

// Populate absorbs a flat slice of go-ldap search result entries into the
// store, stripping base off each entry's DN to derive its relative-DN key.
// Entries whose DN does not fall under base (should not occur given a
// correctly scoped search, but defensive against a misconfigured server)
// are dropped with a logged error rather than silently discarded.
func Populate(store *Store, results []*ldap.Entry, textSyntaxes func(attr string) bool) {
	for _, res := range results {
		rel, ok := dn.StripSuffix(res.DN, store.Base)
		if !ok {
			log.Error(errors.Errorf("entry %s does not fall under base %s, dropping", res.DN, store.Base))
			continue
		}
		e := newEntry(rel)
		for _, a := range res.Attributes {
			if textSyntaxes == nil || textSyntaxes(a.Name) {
				e.TextAttrs[a.Name] = append([]string(nil), a.Values...)
			} else {
				e.BinaryAttrs[a.Name] = append([][]byte(nil), a.ByteValues...)
			}
		}
		store.Put(e)
	}
}
