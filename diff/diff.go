/*
Package diff computes the set of directory operations that would turn a
destination subtree into a copy of a source subtree: which relative DNs
need adding, which need deleting, and which existing entries need one or
more attribute modifications.

There is no single teacher file this generalizes (go-dirsyn never compares
two directories), so the Differ is new code, but it leans on dn, entry and
schema for every grammar and type question it needs answered, the same
separation of concerns those packages were built to support.
*/
package diff

import (
	"sort"
	"strings"

	"github.com/taladar/sync-ldap-subtrees/entry"
	"github.com/taladar/sync-ldap-subtrees/rewrite"
	"github.com/taladar/sync-ldap-subtrees/schema"
)

// ModKind identifies which of the four modify operations a Mod performs.
type ModKind int

const (
	// Replace sets attr to exactly the given values, creating or
	// overwriting it.
	Replace ModKind = iota
	// Add appends the given values to attr, creating it if absent.
	Add
	// Delete removes attr entirely, or just the given values if any are
	// present.
	Delete
	// Increment adds a numeric delta to a single-valued integer
	// attribute. Not produced by Differ today: nothing in a directory
	// subtree comparison implies a counter semantic, but the Applier and
	// wire format both support it for callers that construct operations
	// by hand.
	Increment
)

// Mod is one attribute modification within a Modify operation.
type Mod struct {
	Kind         ModKind
	Attr         string
	Values       []string
	BinaryValues [][]byte
}

// Operation is one of AddOp, DeleteOp or ModifyOp.
type Operation interface {
	isOperation()
}

// AddOp creates a new entry at Entry.RelativeDN.
type AddOp struct {
	Entry *entry.Entry
}

// DeleteOp removes the entry at RelativeDN.
type DeleteOp struct {
	RelativeDN string
}

// ModifyOp applies Mods to the existing entry at RelativeDN.
type ModifyOp struct {
	RelativeDN string
	Mods       []Mod
}

func (AddOp) isOperation()    {}
func (DeleteOp) isOperation() {}
func (ModifyOp) isOperation() {}

// Differ computes Add/Delete/Modify operations between a source and
// destination Store, consulting a schema Oracle for equality semantics and
// honoring caller-supplied ignore lists. Every DN-syntax value it emits,
// whether in an Add's entry or a Modify's replacement set, is rewritten
// from the source naming context to the destination one before it is
// compared or returned, per §4.1/§4.3: a DN-valued attribute must never
// be compared against an un-rewritten source value, or a later run would
// see a perpetual (and wrong) difference.
type Differ struct {
	Schema              *schema.Oracle
	IgnoreAttributes    []string
	IgnoreObjectClasses []string

	rewriter *rewrite.Rewriter
}

// New builds a Differ bound to the source schema and the two naming
// contexts being reconciled. oracle may be nil, in which case every
// attribute is compared byte-exact and no DN-syntax rewriting occurs.
func New(oracle *schema.Oracle, srcBase, dstBase string, ignoreAttributes, ignoreObjectClasses []string) *Differ {
	return &Differ{
		Schema:              oracle,
		IgnoreAttributes:    ignoreAttributes,
		IgnoreObjectClasses: ignoreObjectClasses,
		rewriter:            rewrite.New(oracle, srcBase, dstBase),
	}
}

// rewriteDNValues rewrites vals for attr if and only if attr's declared
// schema syntax is the DN syntax OID, leaving every other attribute's
// values untouched.
func (d *Differ) rewriteDNValues(attr string, vals []string) []string {
	if d.Schema == nil || !d.Schema.IsDNSyntax(attr) {
		return vals
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = d.rewriter.Value(v)
	}
	return out
}

// Diff compares src against dst and returns the operations that would make
// dst match src. The returned slice is not sequenced for safe application;
// see package plan for that.
func (d *Differ) Diff(src, dst *entry.Store) []Operation {
	var ops []Operation

	for _, rel := range src.RelativeDNs() {
		s, _ := src.Get(rel)
		if t, ok := dst.Get(rel); ok {
			if mods := d.diffEntry(s, t); len(mods) > 0 {
				ops = append(ops, ModifyOp{RelativeDN: rel, Mods: mods})
			}
			continue
		}
		ops = append(ops, AddOp{Entry: d.filterForAdd(s)})
	}

	for _, rel := range dst.RelativeDNs() {
		if _, ok := src.Get(rel); !ok {
			ops = append(ops, DeleteOp{RelativeDN: rel})
		}
	}

	return ops
}

func (d *Differ) isIgnoredAttribute(attr string) bool {
	for _, a := range d.IgnoreAttributes {
		if strings.EqualFold(a, attr) {
			return true
		}
	}
	return false
}

func (d *Differ) filterForAdd(e *entry.Entry) *entry.Entry {
	out := &entry.Entry{
		RelativeDN:  e.RelativeDN,
		TextAttrs:   map[string][]string{},
		BinaryAttrs: map[string][][]byte{},
	}
	for attr, vals := range e.TextAttrs {
		if d.isIgnoredAttribute(attr) {
			continue
		}
		if isObjectClass(attr) {
			vals = excludeValues(vals, d.IgnoreObjectClasses)
			if len(vals) == 0 {
				continue
			}
		} else {
			vals = d.rewriteDNValues(attr, vals)
		}
		out.TextAttrs[attr] = vals
	}
	for attr, vals := range e.BinaryAttrs {
		if d.isIgnoredAttribute(attr) {
			continue
		}
		out.BinaryAttrs[attr] = vals
	}
	return out
}

// diffEntry returns the Mods needed to bring dst's attributes in line with
// src's, consulting d.Schema to decide whether each attribute compares
// case-insensitively (P4: a value differing only in case, under a
// case-folding equality rule, produces no Mod at all).
func (d *Differ) diffEntry(src, dst *entry.Entry) []Mod {
	var mods []Mod

	for _, attr := range unionKeys(src.TextAttrs, dst.TextAttrs) {
		if d.isIgnoredAttribute(attr) {
			continue
		}
		srcVals := src.TextAttrs[attr]
		dstVals := dst.TextAttrs[attr]

		if isObjectClass(attr) {
			if mod, ok := d.diffObjectClass(srcVals, dstVals); ok {
				mods = append(mods, mod)
			}
			continue
		}

		if mod, ok := d.diffTextAttr(attr, srcVals, dstVals); ok {
			mods = append(mods, mod)
		}
	}

	for _, attr := range unionKeys(src.BinaryAttrs, dst.BinaryAttrs) {
		if d.isIgnoredAttribute(attr) {
			continue
		}
		srcVals := src.BinaryAttrs[attr]
		dstVals := dst.BinaryAttrs[attr]
		if mod, ok := diffBinaryAttr(attr, srcVals, dstVals); ok {
			mods = append(mods, mod)
		}
	}

	return mods
}

func (d *Differ) diffTextAttr(attr string, srcVals, dstVals []string) (Mod, bool) {
	srcVals = d.rewriteDNValues(attr, srcVals)

	_, srcHas := attrPresent(srcVals)
	_, dstHas := attrPresent(dstVals)

	foldCase := d.Schema != nil && d.Schema.IsCaseInsensitiveEquality(attr)
	if textValueSetsEqual(srcVals, dstVals, foldCase) {
		return Mod{}, false
	}

	switch {
	case srcHas && !dstHas:
		return Mod{Kind: Add, Attr: attr, Values: srcVals}, true
	case !srcHas && dstHas:
		return Mod{Kind: Delete, Attr: attr}, true
	default:
		return Mod{Kind: Replace, Attr: attr, Values: srcVals}, true
	}
}

func diffBinaryAttr(attr string, srcVals, dstVals [][]byte) (Mod, bool) {
	_, srcHas := attrPresent(srcVals)
	_, dstHas := attrPresent(dstVals)

	if binaryValueSetsEqual(srcVals, dstVals) {
		return Mod{}, false
	}

	switch {
	case srcHas && !dstHas:
		return Mod{Kind: Add, Attr: attr, BinaryValues: srcVals}, true
	case !srcHas && dstHas:
		return Mod{Kind: Delete, Attr: attr}, true
	default:
		return Mod{Kind: Replace, Attr: attr, BinaryValues: srcVals}, true
	}
}

// diffObjectClass compares the objectClass attribute after excluding any
// classes on the ignore list from both sides, and emits the same
// exclusion in the Replace value set: an ignored class never appears in
// an emitted operation (P7), whichever side it came from.
func (d *Differ) diffObjectClass(srcVals, dstVals []string) (Mod, bool) {
	comparableSrc := excludeValues(srcVals, d.IgnoreObjectClasses)
	comparableDst := excludeValues(dstVals, d.IgnoreObjectClasses)
	if textValueSetsEqual(comparableSrc, comparableDst, true) {
		return Mod{}, false
	}

	return Mod{Kind: Replace, Attr: "objectClass", Values: comparableSrc}, true
}

func isObjectClass(attr string) bool { return strings.EqualFold(attr, "objectClass") }

func attrPresent[T any](vals []T) (T, bool) {
	var zero T
	return zero, len(vals) > 0
}

func unionKeys[T any](a, b map[string]T) []string {
	seen := map[string]bool{}
	var keys []string
	for k := range a {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func excludeValues(vals, exclude []string) []string {
	if len(exclude) == 0 {
		return vals
	}
	var out []string
	for _, v := range vals {
		if !containsFold(exclude, v) {
			out = append(out, v)
		}
	}
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func textValueSetsEqual(a, b []string, foldCase bool) bool {
	if len(a) != len(b) {
		return false
	}
	normA := normalizeText(a, foldCase)
	normB := normalizeText(b, foldCase)
	sort.Strings(normA)
	sort.Strings(normB)
	for i := range normA {
		if normA[i] != normB[i] {
			return false
		}
	}
	return true
}

func normalizeText(vals []string, foldCase bool) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		if foldCase {
			out[i] = strings.ToLower(v)
		} else {
			out[i] = v
		}
	}
	return out
}

func binaryValueSetsEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	normA := make([]string, len(a))
	normB := make([]string, len(b))
	for i, v := range a {
		normA[i] = string(v)
	}
	for i, v := range b {
		normB[i] = string(v)
	}
	sort.Strings(normA)
	sort.Strings(normB)
	for i := range normA {
		if normA[i] != normB[i] {
			return false
		}
	}
	return true
}
