package entry

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
)

func textOnly(attr string) bool { return attr != "jpegPhoto" }

func TestPopulateStripsBaseAndSplitsBuckets(t *testing.T) {
	store := NewStore("dc=example,dc=com")
	results := []*ldap.Entry{
		{
			DN: "ou=people,dc=example,dc=com",
			Attributes: []*ldap.EntryAttribute{
				{Name: "ou", Values: []string{"people"}},
			},
		},
		{
			DN: "cn=bob,ou=people,dc=example,dc=com",
			Attributes: []*ldap.EntryAttribute{
				{Name: "cn", Values: []string{"bob"}},
				{Name: "jpegPhoto", ByteValues: [][]byte{{0xff, 0xd8}}},
			},
		},
	}

	Populate(store, results, textOnly)

	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}

	root, ok := store.Get("ou=people")
	if !ok {
		t.Fatal("expected ou=people entry")
	}
	if root.TextAttrs["ou"][0] != "people" {
		t.Errorf("unexpected ou value %v", root.TextAttrs["ou"])
	}

	child, ok := store.Get("cn=bob,ou=people")
	if !ok {
		t.Fatal("expected cn=bob,ou=people entry")
	}
	if len(child.BinaryAttrs["jpegPhoto"]) != 1 {
		t.Errorf("expected jpegPhoto in binary bucket, got %v", child.BinaryAttrs)
	}
	if _, ok := child.TextAttrs["jpegPhoto"]; ok {
		t.Error("jpegPhoto must not appear in text bucket")
	}
}

func TestPopulateSkipsEntriesOutsideBase(t *testing.T) {
	store := NewStore("dc=example,dc=com")
	Populate(store, []*ldap.Entry{{DN: "cn=bob,dc=other,dc=com"}}, textOnly)
	if store.Len() != 0 {
		t.Errorf("expected out-of-base entry to be skipped, got %d entries", store.Len())
	}
}

func TestRelativeDNsAncestorOrder(t *testing.T) {
	store := NewStore("dc=example,dc=com")
	for _, rel := range []string{"cn=z,ou=people", "ou=people", "cn=a,ou=people"} {
		store.Put(newEntry(rel))
	}
	order := store.RelativeDNs()
	if order[0] != "ou=people" {
		t.Errorf("expected ou=people to sort first (ancestor), got %v", order)
	}
}
