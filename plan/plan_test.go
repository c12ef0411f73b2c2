package plan

import (
	"testing"

	"github.com/taladar/sync-ldap-subtrees/diff"
	"github.com/taladar/sync-ldap-subtrees/entry"
)

func TestSortAddsAncestorFirst(t *testing.T) {
	ops := []diff.Operation{
		diff.AddOp{Entry: &entry.Entry{RelativeDN: "cn=a,ou=people"}},
		diff.AddOp{Entry: &entry.Entry{RelativeDN: "ou=people"}},
	}
	sorted := Sort(ops)
	first := sorted[0].(diff.AddOp)
	if first.Entry.RelativeDN != "ou=people" {
		t.Errorf("expected ou=people first, got %q", first.Entry.RelativeDN)
	}
}

func TestSortDeletesDescendantFirst(t *testing.T) {
	ops := []diff.Operation{
		diff.DeleteOp{RelativeDN: "ou=people"},
		diff.DeleteOp{RelativeDN: "cn=a,ou=people"},
	}
	sorted := Sort(ops)
	first := sorted[0].(diff.DeleteOp)
	if first.RelativeDN != "cn=a,ou=people" {
		t.Errorf("expected cn=a,ou=people first, got %q", first.RelativeDN)
	}
}

// TestSortCrossKindPreservesEmissionOrder covers S5: Adds and Deletes are
// incomparable, so the stable sort must not reorder them relative to each
// other, only within their own kind.
func TestSortCrossKindPreservesEmissionOrder(t *testing.T) {
	ops := []diff.Operation{
		diff.AddOp{Entry: &entry.Entry{RelativeDN: "ou=people"}},
		diff.AddOp{Entry: &entry.Entry{RelativeDN: "cn=a,ou=people"}},
		diff.DeleteOp{RelativeDN: "cn=z,ou=old"},
		diff.DeleteOp{RelativeDN: "ou=old"},
	}
	sorted := Sort(ops)

	want := []string{"ou=people", "cn=a,ou=people", "cn=z,ou=old", "ou=old"}
	for i, w := range want {
		var got string
		switch v := sorted[i].(type) {
		case diff.AddOp:
			got = v.Entry.RelativeDN
		case diff.DeleteOp:
			got = v.RelativeDN
		}
		if got != w {
			t.Errorf("position %d: expected %q, got %q (%#v)", i, w, got, sorted[i])
		}
	}
}

func TestSortDeletesStayAfterAddsWhenEmittedAfter(t *testing.T) {
	ops := []diff.Operation{
		diff.AddOp{Entry: &entry.Entry{RelativeDN: "cn=new"}},
		diff.DeleteOp{RelativeDN: "cn=old"},
	}
	sorted := Sort(ops)
	if _, ok := sorted[0].(diff.AddOp); !ok {
		t.Errorf("expected add first (emission order preserved), got %T", sorted[0])
	}
}
