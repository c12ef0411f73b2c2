/*
Package scope implements the [RFC 4511] §4.5.1.2 search scope enumeration
(baseObject, singleLevel, wholeSubtree) together with the string and
integer spellings commonly accepted on the command line and in LDAP URLs.

Adapted from the SearchScope type in [JesseCoretta/go-dirsyn], trimmed to
the three scopes RFC 4511 defines; the ACIv3 "subordinate" extension that
file also carries has no bearing on a plain search request.

[RFC 4511]: https://datatracker.ietf.org/doc/html/rfc4511
[JesseCoretta/go-dirsyn]: https://github.com/JesseCoretta/go-dirsyn
*/
package scope

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Scope is one of the three search scopes RFC 4511 §4.5.1.2 defines.
type Scope uint8

const (
	unspecified Scope = iota
	BaseObject        // `base`
	SingleLevel       // `one` / `onelevel`
	WholeSubtree      // `sub` / `subtree`
)

// String renders the scope using its canonical short LDAP URL spelling.
func (s Scope) String() string {
	switch s {
	case BaseObject:
		return "base"
	case SingleLevel:
		return "one"
	case WholeSubtree:
		return "sub"
	default:
		return "<invalid_search_scope>"
	}
}

// Parse accepts the scope's string name (base/baseobject, one/onelevel,
// sub/subtree, case-insensitively) and returns the corresponding Scope.
func Parse(x string) (Scope, error) {
	switch strings.ToLower(x) {
	case "base", "baseobject":
		return BaseObject, nil
	case "one", "onelevel":
		return SingleLevel, nil
	case "sub", "subtree":
		return WholeSubtree, nil
	}
	return unspecified, errors.Errorf("unrecognized search scope %q", x)
}

// ParseInt accepts the LDAP protocol's integer scope encoding (0, 1, 2).
func ParseInt(x int) (Scope, error) {
	switch x {
	case 0:
		return BaseObject, nil
	case 1:
		return SingleLevel, nil
	case 2:
		return WholeSubtree, nil
	}
	return unspecified, errors.Errorf("unrecognized search scope %s", strconv.Itoa(x))
}
