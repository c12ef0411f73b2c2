/*
Package apply executes a sequenced slice of diff.Operation values against a
destination directory over an existing go-ldap/v3 connection: adds, deletes
(recursively removing any children the destination retained), and modifies
with text and binary values merged into a single unified request per
attribute set.

go-dirsyn never performs network operations (it is a pure grammar and
schema library), so this package's shape follows the failure-handling style
the rest of this module uses: return the first error encountered and stop,
wrapped with github.com/pkg/errors the way the logging and cmd packages do.
*/
package apply

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"

	"github.com/taladar/sync-ldap-subtrees/diff"
)

// Conn is the subset of *ldap.Conn this package needs, so tests can supply
// a fake.
type Conn interface {
	Add(*ldap.AddRequest) error
	Del(*ldap.DelRequest) error
	Modify(*ldap.ModifyRequest) error
	Search(*ldap.SearchRequest) (*ldap.SearchResult, error)
}

// Applier applies operations to a destination directory.
type Applier struct {
	Conn     Conn
	Base     string
	Controls []ldap.Control
}

// New builds an Applier bound to an established connection and the
// destination search base the relative DNs in each operation are rooted
// at. controls is attached to every request this Applier issues (Add,
// Modify, Delete and the pre-delete Search), per §4.5; it may be nil.
func New(conn Conn, base string, controls []ldap.Control) *Applier {
	return &Applier{Conn: conn, Base: base, Controls: controls}
}

// Apply executes ops in order, stopping at the first error. Operations
// must already be sequenced (see package plan) so that Adds happen after
// their parent and Deletes happen before theirs.
func (a *Applier) Apply(ops []diff.Operation) error {
	for _, op := range ops {
		var err error
		switch v := op.(type) {
		case diff.AddOp:
			err = a.add(v)
		case diff.DeleteOp:
			err = a.deleteRecursive(v.RelativeDN)
		case diff.ModifyOp:
			err = a.modify(v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) full(relativeDN string) string {
	if relativeDN == "" {
		return a.Base
	}
	return relativeDN + "," + a.Base
}

func (a *Applier) add(op diff.AddOp) error {
	req := ldap.NewAddRequest(a.full(op.Entry.RelativeDN), a.Controls)
	for attr, vals := range op.Entry.TextAttrs {
		req.Attribute(attr, vals)
	}
	for attr, vals := range op.Entry.BinaryAttrs {
		req.Attribute(attr, byteValuesToStrings(vals))
	}
	if err := a.Conn.Add(req); err != nil {
		return errors.Wrapf(err, "add %s", req.DN)
	}
	return nil
}

func (a *Applier) modify(op diff.ModifyOp) error {
	req := ldap.NewModifyRequest(a.full(op.RelativeDN), a.Controls)
	for _, m := range op.Mods {
		values := m.Values
		if len(m.BinaryValues) > 0 {
			values = byteValuesToStrings(m.BinaryValues)
		}
		switch m.Kind {
		case diff.Replace:
			req.Replace(m.Attr, values)
		case diff.Add:
			req.Add(m.Attr, values)
		case diff.Delete:
			req.Delete(m.Attr, values)
		case diff.Increment:
			if len(values) != 1 {
				return errors.Errorf("increment on %s requires exactly one delta value", m.Attr)
			}
			req.Increment(m.Attr, mustAtoi(values[0]))
		}
	}
	if err := a.Conn.Modify(req); err != nil {
		return errors.Wrapf(err, "modify %s", req.DN)
	}
	return nil
}

// deleteRecursive removes the entry at relativeDN along with any children
// the destination might still hold underneath it (the source's own
// children are handled by their own DeleteOp/AddOp entries; this guards
// against destination-only descendants a scoped diff never saw).
func (a *Applier) deleteRecursive(relativeDN string) error {
	full := a.full(relativeDN)

	res, err := a.Conn.Search(ldap.NewSearchRequest(
		full, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		"(objectClass=*)", []string{"dn"}, a.Controls,
	))
	if err != nil {
		return errors.Wrapf(err, "search before delete %s", full)
	}

	children := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		if e.DN != full {
			children = append(children, e.DN)
		}
	}
	sortDeepestFirst(children)

	for _, childDN := range children {
		if err := a.Conn.Del(ldap.NewDelRequest(childDN, a.Controls)); err != nil {
			return errors.Wrapf(err, "delete %s", childDN)
		}
	}

	if err := a.Conn.Del(ldap.NewDelRequest(full, a.Controls)); err != nil {
		return errors.Wrapf(err, "delete %s", full)
	}
	return nil
}

func sortDeepestFirst(dns []string) {
	// longer DN strings nest deeper in practice (more RDN components),
	// which is good enough for cleaning up an already-scoped subtree.
	for i := 1; i < len(dns); i++ {
		for j := i; j > 0 && len(dns[j-1]) < len(dns[j]); j-- {
			dns[j-1], dns[j] = dns[j], dns[j-1]
		}
	}
}

func byteValuesToStrings(vals [][]byte) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

func mustAtoi(s string) uint32 {
	var n uint32
	fmt.Sscanf(s, "%d", &n)
	return n
}
