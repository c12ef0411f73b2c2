package rewrite

import (
	"testing"

	"github.com/taladar/sync-ldap-subtrees/entry"
	"github.com/taladar/sync-ldap-subtrees/schema"
)

func newTestOracle(t *testing.T) *schema.Oracle {
	t.Helper()
	o, err := schema.NewOracle([]string{
		`( 2.5.4.31 NAME 'member' SYNTAX 1.3.6.1.4.1.1466.115.121.1.12 )`,
		`( 2.5.4.3 NAME 'cn' SYNTAX 1.3.6.1.4.1.1466.115.121.1.15 )`,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestEntryRewritesOnlyDNSyntaxAttributes(t *testing.T) {
	r := New(newTestOracle(t), "dc=src,dc=example", "dc=dst,dc=example")

	e := &entry.Entry{
		RelativeDN: "cn=group",
		TextAttrs: map[string][]string{
			"member": {"cn=bob,ou=people,dc=src,dc=example"},
			"cn":     {"group"},
		},
		BinaryAttrs: map[string][][]byte{},
	}

	r.Entry(e)

	if got := e.TextAttrs["member"][0]; got != "cn=bob,ou=people,dc=dst,dc=example" {
		t.Errorf("member = %q", got)
	}
	if got := e.TextAttrs["cn"][0]; got != "group" {
		t.Errorf("cn must be untouched, got %q", got)
	}
}

func TestValueLeavesUnrelatedDNUnchanged(t *testing.T) {
	r := New(newTestOracle(t), "dc=src,dc=example", "dc=dst,dc=example")
	v := "cn=bob,ou=people,dc=other,dc=example"
	if got := r.Value(v); got != v {
		t.Errorf("expected unrelated DN unchanged, got %q", got)
	}
}
