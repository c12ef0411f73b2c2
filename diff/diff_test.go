package diff

import (
	"testing"

	"github.com/taladar/sync-ldap-subtrees/entry"
	"github.com/taladar/sync-ldap-subtrees/schema"
)

func newEntry(rel string, text map[string][]string) *entry.Entry {
	return &entry.Entry{RelativeDN: rel, TextAttrs: text, BinaryAttrs: map[string][][]byte{}}
}

func TestDiffAddsMissingEntry(t *testing.T) {
	src := entry.NewStore("dc=example,dc=com")
	dst := entry.NewStore("dc=example,dc=com")
	src.Put(newEntry("cn=bob,ou=people", map[string][]string{"cn": {"bob"}}))

	ops := New(nil, "", "", nil, nil).Diff(src, dst)
	if len(ops) != 1 {
		t.Fatalf("expected 1 op, got %d", len(ops))
	}
	add, ok := ops[0].(AddOp)
	if !ok {
		t.Fatalf("expected AddOp, got %T", ops[0])
	}
	if add.Entry.RelativeDN != "cn=bob,ou=people" {
		t.Errorf("unexpected relative DN %q", add.Entry.RelativeDN)
	}
}

func TestDiffDeletesExtraEntry(t *testing.T) {
	src := entry.NewStore("dc=example,dc=com")
	dst := entry.NewStore("dc=example,dc=com")
	dst.Put(newEntry("cn=bob,ou=people", map[string][]string{"cn": {"bob"}}))

	ops := New(nil, "", "", nil, nil).Diff(src, dst)
	if len(ops) != 1 {
		t.Fatalf("expected 1 op, got %d", len(ops))
	}
	if _, ok := ops[0].(DeleteOp); !ok {
		t.Fatalf("expected DeleteOp, got %T", ops[0])
	}
}

func TestDiffNoOpWhenIdentical(t *testing.T) {
	src := entry.NewStore("dc=example,dc=com")
	dst := entry.NewStore("dc=example,dc=com")
	src.Put(newEntry("cn=bob,ou=people", map[string][]string{"cn": {"bob"}}))
	dst.Put(newEntry("cn=bob,ou=people", map[string][]string{"cn": {"bob"}}))

	ops := New(nil, "", "", nil, nil).Diff(src, dst)
	if len(ops) != 0 {
		t.Fatalf("expected no ops, got %d: %#v", len(ops), ops)
	}
}

func TestDiffCaseInsensitiveEqualityShortCircuits(t *testing.T) {
	oracle, err := schema.NewOracle(
		[]string{`( 2.5.4.3 NAME 'cn' EQUALITY caseIgnoreMatch SYNTAX 1.3.6.1.4.1.1466.115.121.1.15 )`},
		[]string{`( 2.5.13.2 NAME 'caseIgnoreMatch' SYNTAX 1.3.6.1.4.1.1466.115.121.1.15 )`},
	)
	if err != nil {
		t.Fatal(err)
	}

	src := entry.NewStore("dc=example,dc=com")
	dst := entry.NewStore("dc=example,dc=com")
	src.Put(newEntry("cn=bob,ou=people", map[string][]string{"cn": {"Bob"}}))
	dst.Put(newEntry("cn=bob,ou=people", map[string][]string{"cn": {"bob"}}))

	ops := New(oracle, "", "", nil, nil).Diff(src, dst)
	if len(ops) != 0 {
		t.Fatalf("expected case-insensitive match to short-circuit, got %#v", ops)
	}
}

func TestDiffEmitsReplaceForDifferingValues(t *testing.T) {
	src := entry.NewStore("dc=example,dc=com")
	dst := entry.NewStore("dc=example,dc=com")
	src.Put(newEntry("cn=bob,ou=people", map[string][]string{"cn": {"bob"}, "mail": {"bob@new.example"}}))
	dst.Put(newEntry("cn=bob,ou=people", map[string][]string{"cn": {"bob"}, "mail": {"bob@old.example"}}))

	ops := New(nil, "", "", nil, nil).Diff(src, dst)
	if len(ops) != 1 {
		t.Fatalf("expected 1 op, got %d", len(ops))
	}
	m, ok := ops[0].(ModifyOp)
	if !ok {
		t.Fatalf("expected ModifyOp, got %T", ops[0])
	}
	if len(m.Mods) != 1 || m.Mods[0].Attr != "mail" || m.Mods[0].Kind != Replace {
		t.Errorf("unexpected mods %#v", m.Mods)
	}
}

func TestDiffIgnoreAttributesSuppressesMod(t *testing.T) {
	src := entry.NewStore("dc=example,dc=com")
	dst := entry.NewStore("dc=example,dc=com")
	src.Put(newEntry("cn=bob,ou=people", map[string][]string{"description": {"new"}}))
	dst.Put(newEntry("cn=bob,ou=people", map[string][]string{"description": {"old"}}))

	ops := New(nil, "", "", []string{"description"}, nil).Diff(src, dst)
	if len(ops) != 0 {
		t.Fatalf("expected ignored attribute to suppress mod, got %#v", ops)
	}
}

func TestDiffObjectClassPreservesLocalIgnoredClass(t *testing.T) {
	src := entry.NewStore("dc=example,dc=com")
	dst := entry.NewStore("dc=example,dc=com")
	src.Put(newEntry("cn=bob,ou=people", map[string][]string{"objectClass": {"top", "person"}}))
	dst.Put(newEntry("cn=bob,ou=people", map[string][]string{"objectClass": {"top", "person", "localOverlay"}}))

	ops := New(nil, "", "", nil, []string{"localOverlay"}).Diff(src, dst)
	if len(ops) != 0 {
		t.Fatalf("expected ignored local objectClass to suppress mod, got %#v", ops)
	}
}

// TestDiffRewritesDNSyntaxValueInModify covers P3/P1: a DN-syntax
// attribute already correctly synced at the destination (holding a
// destination-base value) must not trigger a Replace just because the
// raw source value is still rooted at the source base.
func TestDiffRewritesDNSyntaxValueInModify(t *testing.T) {
	oracle, err := schema.NewOracle([]string{
		`( 2.5.4.31 NAME 'member' SYNTAX 1.3.6.1.4.1.1466.115.121.1.12 )`,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	src := entry.NewStore("dc=src,dc=example")
	dst := entry.NewStore("dc=dst,dc=example")
	src.Put(newEntry("cn=group,ou=groups", map[string][]string{
		"member": {"cn=u,ou=people,dc=src,dc=example"},
	}))
	dst.Put(newEntry("cn=group,ou=groups", map[string][]string{
		"member": {"cn=u,ou=people,dc=dst,dc=example"},
	}))

	differ := New(oracle, "dc=src,dc=example", "dc=dst,dc=example", nil, nil)
	ops := differ.Diff(src, dst)
	if len(ops) != 0 {
		t.Fatalf("expected no ops once DN-syntax values are rewritten before comparison, got %#v", ops)
	}
}

// TestDiffModifyRewritesDNSyntaxValue covers §4.1/§4.3: when a Modify is
// actually needed, the replacement values for a DN-syntax attribute must
// already be rewritten to the destination base, never left rooted at the
// source base (P3).
func TestDiffModifyRewritesDNSyntaxValue(t *testing.T) {
	oracle, err := schema.NewOracle([]string{
		`( 2.5.4.31 NAME 'member' SYNTAX 1.3.6.1.4.1.1466.115.121.1.12 )`,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	src := entry.NewStore("dc=src,dc=example")
	dst := entry.NewStore("dc=dst,dc=example")
	src.Put(newEntry("cn=group,ou=groups", map[string][]string{
		"member": {"cn=new,ou=people,dc=src,dc=example"},
	}))
	dst.Put(newEntry("cn=group,ou=groups", map[string][]string{
		"member": {"cn=old,ou=people,dc=dst,dc=example"},
	}))

	differ := New(oracle, "dc=src,dc=example", "dc=dst,dc=example", nil, nil)
	ops := differ.Diff(src, dst)
	if len(ops) != 1 {
		t.Fatalf("expected 1 op, got %#v", ops)
	}
	m := ops[0].(ModifyOp)
	if len(m.Mods) != 1 || m.Mods[0].Attr != "member" {
		t.Fatalf("unexpected mods %#v", m.Mods)
	}
	if got := m.Mods[0].Values[0]; got != "cn=new,ou=people,dc=dst,dc=example" {
		t.Errorf("expected replacement value rewritten to destination base, got %q", got)
	}
}

func TestDiffObjectClassSyncsRealDifference(t *testing.T) {
	src := entry.NewStore("dc=example,dc=com")
	dst := entry.NewStore("dc=example,dc=com")
	src.Put(newEntry("cn=bob,ou=people", map[string][]string{"objectClass": {"top", "person", "inetOrgPerson"}}))
	dst.Put(newEntry("cn=bob,ou=people", map[string][]string{"objectClass": {"top", "person", "localOverlay"}}))

	ops := New(nil, "", "", nil, []string{"localOverlay"}).Diff(src, dst)
	if len(ops) != 1 {
		t.Fatalf("expected 1 op, got %#v", ops)
	}
	m := ops[0].(ModifyOp)
	values := m.Mods[0].Values
	if !containsFold(values, "inetOrgPerson") {
		t.Errorf("expected replace set to include the synced class, got %v", values)
	}
	if containsFold(values, "localOverlay") {
		t.Errorf("expected ignored objectClass to be excluded from the replace set (P7), got %v", values)
	}
}
