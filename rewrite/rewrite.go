/*
Package rewrite implements the DN-rewriting step of the reconciliation
pipeline: every attribute value whose syntax is the DN syntax (RFC 4517
§3.3.9, OID 1.3.6.1.4.1.1466.115.121.1.12) gets its source-base suffix
swapped for the destination base, so references like "member" or
"manager" keep pointing at the right relocated entry instead of a DN that
only existed on the source server.

This has no single teacher file to adapt (go-dirsyn never crosses two
directories), so it is new code built directly on the dn and schema
packages those files already provide.
*/
package rewrite

import (
	"github.com/taladar/sync-ldap-subtrees/dn"
	"github.com/taladar/sync-ldap-subtrees/entry"
	"github.com/taladar/sync-ldap-subtrees/schema"
)

// Rewriter swaps a source naming-context suffix for a destination one
// inside DN-syntax attribute values.
type Rewriter struct {
	Schema  *schema.Oracle
	SrcBase string
	DstBase string
}

// New builds a Rewriter bound to a schema oracle and the two naming
// contexts being reconciled.
func New(oracle *schema.Oracle, srcBase, dstBase string) *Rewriter {
	return &Rewriter{Schema: oracle, SrcBase: srcBase, DstBase: dstBase}
}

// Entry rewrites e's DN-syntax text attribute values in place and returns
// e for chaining. Binary attributes are never DN-syntax under RFC 4517
// and are left untouched.
func (r *Rewriter) Entry(e *entry.Entry) *entry.Entry {
	if r.Schema == nil {
		return e
	}
	for attr, values := range e.TextAttrs {
		if !r.Schema.IsDNSyntax(attr) {
			continue
		}
		rewritten := make([]string, len(values))
		for i, v := range values {
			rewritten[i] = r.Value(v)
		}
		e.TextAttrs[attr] = rewritten
	}
	return e
}

// Value rewrites a single DN-syntax value, leaving it unchanged if it does
// not parse or does not fall under SrcBase.
func (r *Rewriter) Value(value string) string {
	parsed, err := dn.Parse(value)
	if err != nil {
		return value
	}
	rel, ok := dn.StripSuffix(parsed.String(), r.SrcBase)
	if !ok {
		return value
	}
	return dn.Join(rel, r.DstBase)
}
