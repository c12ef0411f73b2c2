package filter

import (
	"testing"

	"github.com/taladar/sync-ldap-subtrees/schema"
)

func TestParseAndRoundTrip(t *testing.T) {
	cases := []string{
		`(objectClass=*)`,
		`(&(objectClass=person)(cn=bob))`,
		`(|(cn=a)(cn=b))`,
		`(!(cn=a))`,
		`(cn>=a)`,
		`(cn<=a)`,
		`(cn~=a)`,
		`(cn=a*b*c)`,
		`(cn=*b*)`,
		`(cn=a*)`,
		`(cn=*a)`,
		`(cn:caseExactMatch:=a)`,
		`(:dn:2.5.13.5:=a)`,
	}
	for _, c := range cases {
		f, err := Parse(c)
		if err != nil {
			t.Errorf("Parse(%q): %v", c, err)
			continue
		}
		if got := f.String(); got != c {
			t.Errorf("round trip %q -> %q", c, got)
		}
	}
}

func TestParseEmptyDefaultsToObjectClassPresent(t *testing.T) {
	f, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if f.String() != "(objectClass=*)" {
		t.Errorf("got %q", f.String())
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := parseItem("noequalssign"); err == nil {
		t.Error("expected error for missing '='")
	}
}

func TestRewriteBaseDNs(t *testing.T) {
	attributeTypes := []string{
		`( 2.5.4.31 NAME 'member' SYNTAX 1.3.6.1.4.1.1466.115.121.1.12 )`,
	}
	o, err := schema.NewOracle(attributeTypes, nil)
	if err != nil {
		t.Fatal(err)
	}

	f, err := Parse("(member=cn=bob,ou=people,dc=src,dc=example)")
	if err != nil {
		t.Fatal(err)
	}

	rewritten := RewriteBaseDNs(f, o, "dc=src,dc=example", "dc=dst,dc=example")
	want := "(member=cn=bob,ou=people,dc=dst,dc=example)"
	if got := rewritten.String(); got != want {
		t.Errorf("RewriteBaseDNs() = %q, want %q", got, want)
	}
}

func TestRewriteBaseDNsLeavesNonDNAttributesAlone(t *testing.T) {
	o, err := schema.NewOracle(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err := Parse("(cn=bob)")
	if err != nil {
		t.Fatal(err)
	}
	rewritten := RewriteBaseDNs(f, o, "dc=src,dc=example", "dc=dst,dc=example")
	if rewritten.String() != "(cn=bob)" {
		t.Errorf("expected unchanged filter, got %q", rewritten.String())
	}
}
