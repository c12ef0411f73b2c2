/*
Package plan sequences a set of directory operations into an order that is
safe to apply one at a time: every Add happens after its parent (shallowest
first), every Delete happens before its parent (deepest first). Any pair
of operations of different kinds, and any pair of Modifies, is
incomparable and keeps its relative emission order; the Differ emits
every Add and Modify before any Delete.

This is new code: nothing in go-dirsyn orders operations, since it never
produces any. It builds directly on [dn.Less], which already encodes the
ancestor-before-descendant comparison this package needs.

[dn.Less]: https://pkg.go.dev/github.com/taladar/sync-ldap-subtrees/dn
*/
package plan

import (
	"sort"

	"github.com/taladar/sync-ldap-subtrees/diff"
	"github.com/taladar/sync-ldap-subtrees/dn"
)

// Sort returns ops reordered so that it is always safe to apply
// sequentially: Adds ancestor-before-descendant, Deletes
// descendant-before-ancestor, ModifyOp unaffected by position.
func Sort(ops []diff.Operation) []diff.Operation {
	out := make([]diff.Operation, len(ops))
	copy(out, ops)

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})

	return out
}

// less implements the partial order the planner needs: within the same
// operation kind, compare by relative DN depth/ancestry (Adds ascending,
// Deletes descending). Operations of different kinds, and two Modifies,
// are incomparable — less reports false for both orderings, so the stable
// sort leaves them exactly where the Differ emitted them relative to each
// other.
func less(a, b diff.Operation) bool {
	ra, ka := relDN(a)
	rb, kb := relDN(b)

	if ka != kb || ka == kindModify {
		return false
	}

	da, errA := dn.Parse(ra)
	db, errB := dn.Parse(rb)
	if errA != nil || errB != nil {
		return ra < rb
	}

	switch ka {
	case kindDelete:
		// deepest first: b ancestor of a means a is deeper, a < b.
		return dn.Less(db, da)
	default:
		return dn.Less(da, db)
	}
}

type kind int

const (
	kindDelete kind = iota
	kindAdd
	kindModify
)

func relDN(op diff.Operation) (string, kind) {
	switch v := op.(type) {
	case diff.AddOp:
		return v.Entry.RelativeDN, kindAdd
	case diff.DeleteOp:
		return v.RelativeDN, kindDelete
	case diff.ModifyOp:
		return v.RelativeDN, kindModify
	default:
		return "", kindModify
	}
}
