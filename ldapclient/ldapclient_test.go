package ldapclient

import (
	"testing"

	"github.com/go-ldap/ldap/v3"

	"github.com/taladar/sync-ldap-subtrees/scope"
)

func TestToLDAPScope(t *testing.T) {
	cases := map[scope.Scope]int{
		scope.BaseObject:  ldap.ScopeBaseObject,
		scope.SingleLevel: ldap.ScopeSingleLevel,
		scope.WholeSubtree: ldap.ScopeWholeSubtree,
	}
	for in, want := range cases {
		got, err := toLDAPScope(in)
		if err != nil {
			t.Fatalf("toLDAPScope(%v): %v", in, err)
		}
		if got != want {
			t.Errorf("toLDAPScope(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestToLDAPScopeInvalid(t *testing.T) {
	if _, err := toLDAPScope(scope.Scope(99)); err == nil {
		t.Error("expected error for unrecognized scope")
	}
}
