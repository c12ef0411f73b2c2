/*
Package strutil collects small string/rune predicates of the kind used when
parsing schema and DN grammar productions out of RFC 4512, RFC 4514 and
RFC 4515, in the manner of go-dirsyn's single file of aliased stdlib calls.
No other package in this module imports it at present; the schema, dn and
filter parsers do their own scanning inline.
*/
package strutil

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// AssertString requires x to be a string of at least min runes (0 disables
// the length check) and returns a descriptive error otherwise.
func AssertString(x any, min int, name string) (str string, err error) {
	tv, ok := x.(string)
	if !ok {
		return "", errors.New("incompatible input type for " + name)
	}
	if min != 0 && len(tv) < min {
		return "", errors.New("invalid length '" + strconv.Itoa(len(tv)) + "' for " + name)
	}
	return tv, nil
}

// IsAlpha returns true if r is an ASCII letter.
func IsAlpha(r rune) bool {
	return ('A' <= r && r <= 'Z') || ('a' <= r && r <= 'z')
}

// IsDigit returns true if r is an ASCII digit.
func IsDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// IsAlphaNumeric returns true if r is an ASCII letter or digit.
func IsAlphaNumeric(r rune) bool {
	return IsAlpha(r) || IsDigit(r)
}

// IsHex returns true if r is a hexadecimal digit.
func IsHex(r rune) bool {
	return IsDigit(r) || ('A' <= r && r <= 'F') || ('a' <= r && r <= 'f')
}

// RuneSelf is the boundary below which runes are single-byte ASCII.
const RuneSelf = utf8.RuneSelf

// FoldString returns a case-folded string suitable for caseIgnore-style
// attribute comparisons, equivalent to strings.EqualFold(FoldString(a),
// FoldString(b)) == strings.EqualFold(a, b).
func FoldString(s string) string {
	return strings.ToLower(s)
}

// StrInSlice reports whether needle is present in haystack, using case-fold
// comparison.
func StrInSlice(needle string, haystack []string) bool {
	for _, h := range haystack {
		if strings.EqualFold(needle, h) {
			return true
		}
	}
	return false
}

// StringQuotedDescrs renders a NAME clause's quoted-descriptor list as it
// appears in an RFC 4512 schema definition string.
func StringQuotedDescrs(names []string) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return "NAME '" + names[0] + "'"
	}
	var b strings.Builder
	b.WriteString("NAME ( ")
	for i, n := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('\'')
		b.WriteString(n)
		b.WriteByte('\'')
	}
	b.WriteString(" )")
	return b.String()
}
