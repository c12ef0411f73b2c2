/*
Package filter implements the [RFC 4515] search filter string grammar, and
one operation that grammar never needed on its own: rewriting DN-syntax
equality and extensible-match assertion values so a filter written against a source directory's
naming context still matches entries once they've been relocated under a
destination suffix.

The AST and string-form parser are adapted from the Filter implementation
in [JesseCoretta/go-dirsyn]'s filter.go and substr.go; this package keeps
the Filter/Choice/String shape but drops the ASN.1 struct tags dirsyn
carries for BER encoding, since this tool speaks through go-ldap/v3 and
never encodes filters itself.

[RFC 4515]: https://datatracker.ietf.org/doc/html/rfc4515
[JesseCoretta/go-dirsyn]: https://github.com/JesseCoretta/go-dirsyn
*/
package filter

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/taladar/sync-ldap-subtrees/dn"
	"github.com/taladar/sync-ldap-subtrees/schema"
)

// Filter is a parsed RFC 4515 search filter.
type Filter interface {
	String() string
	Choice() string
}

// And implements the "and" CHOICE.
type And []Filter

// Or implements the "or" CHOICE.
type Or []Filter

// Not implements the "not" CHOICE.
type Not struct{ Filter }

// AttributeValueAssertion is the basis of the equality, ordering and
// approximate-match CHOICEs.
type AttributeValueAssertion struct {
	Desc  string
	Value string
}

// Equality implements the "equalityMatch" CHOICE.
type Equality AttributeValueAssertion

// GreaterOrEqual implements the "greaterOrEqual" CHOICE.
type GreaterOrEqual AttributeValueAssertion

// LessOrEqual implements the "lessOrEqual" CHOICE.
type LessOrEqual AttributeValueAssertion

// Approximate implements the "approxMatch" CHOICE.
type Approximate AttributeValueAssertion

// Present implements the "present" CHOICE.
type Present struct{ Desc string }

// Substrings implements the "substrings" CHOICE.
type Substrings struct {
	Desc    string
	Initial string
	Any     []string
	Final   string
}

// ExtensibleMatch implements the "extensibleMatch" CHOICE.
type ExtensibleMatch struct {
	MatchingRule string
	Type         string
	MatchValue   string
	DNAttributes bool
}

func (f And) Choice() string             { return "and" }
func (f Or) Choice() string              { return "or" }
func (f Not) Choice() string             { return "not" }
func (f Equality) Choice() string        { return "equalityMatch" }
func (f GreaterOrEqual) Choice() string  { return "greaterOrEqual" }
func (f LessOrEqual) Choice() string     { return "lessOrEqual" }
func (f Approximate) Choice() string     { return "approxMatch" }
func (f Present) Choice() string         { return "present" }
func (f Substrings) Choice() string      { return "substrings" }
func (f ExtensibleMatch) Choice() string { return "extensibleMatch" }

func (f And) String() string {
	var b strings.Builder
	b.WriteString("(&")
	for _, ref := range f {
		b.WriteString(ref.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (f Or) String() string {
	var b strings.Builder
	b.WriteString("(|")
	for _, ref := range f {
		b.WriteString(ref.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (f Not) String() string { return "(!" + f.Filter.String() + ")" }

func (f Equality) String() string       { return "(" + f.Desc + "=" + f.Value + ")" }
func (f GreaterOrEqual) String() string { return "(" + f.Desc + ">=" + f.Value + ")" }
func (f LessOrEqual) String() string    { return "(" + f.Desc + "<=" + f.Value + ")" }
func (f Approximate) String() string    { return "(" + f.Desc + "~=" + f.Value + ")" }
func (f Present) String() string        { return "(" + f.Desc + "=*)" }

func (f Substrings) String() string {
	var b strings.Builder
	if f.Initial != "" {
		b.WriteString(f.Initial)
	}
	b.WriteByte('*')
	for _, a := range f.Any {
		b.WriteString(a)
		b.WriteByte('*')
	}
	if f.Final != "" {
		b.WriteString(f.Final)
	}
	return "(" + f.Desc + "=" + b.String() + ")"
}

func (f ExtensibleMatch) String() string {
	var s string
	switch {
	case f.Type != "" && f.MatchingRule == "":
		s = f.Type + dnSuffix(f.DNAttributes) + ":=" + f.MatchValue
	case f.Type == "" && f.MatchingRule != "":
		s = dnSuffix(f.DNAttributes) + ":" + f.MatchingRule + ":=" + f.MatchValue
	case f.Type != "" && f.MatchingRule != "":
		s = f.Type + dnSuffix(f.DNAttributes) + ":" + f.MatchingRule + ":=" + f.MatchValue
	default:
		s = dnSuffix(f.DNAttributes) + ":=" + f.MatchValue
	}
	return "(" + s + ")"
}

func dnSuffix(dnAttrs bool) string {
	if dnAttrs {
		return ":dn"
	}
	return ""
}

// Parse parses an RFC 4515 filter string. An empty string is treated as
// "(objectClass=*)", mirroring common LDAP library behavior.
func Parse(input string) (Filter, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Present{Desc: "objectClass"}, nil
	}
	return parse(input)
}

func parse(input string) (Filter, error) {
	switch {
	case strings.HasPrefix(input, "(&"):
		return parseComplex(input[2:len(input)-1], true)
	case strings.HasPrefix(input, "(|"):
		return parseComplex(input[2:len(input)-1], false)
	case strings.HasPrefix(input, "(!"):
		sub, err := parse(input[2 : len(input)-1])
		if err != nil {
			return nil, err
		}
		return Not{sub}, nil
	default:
		return parseItem(input)
	}
}

func parseComplex(input string, and bool) (Filter, error) {
	var refs []Filter
	for _, part := range splitParts(input) {
		sub, err := parse(part)
		if err != nil {
			return nil, err
		}
		refs = append(refs, sub)
	}
	if and {
		return And(refs), nil
	}
	return Or(refs), nil
}

func splitParts(input string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	for _, c := range input {
		switch c {
		case '(':
			if depth == 0 && cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			depth++
		case ')':
			depth--
		}
		cur.WriteRune(c)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func parseItem(input string) (Filter, error) {
	idx := strings.IndexByte(input, '=')
	if idx == -1 {
		return nil, errors.Errorf("malformed filter item %q", input)
	}
	pre := strings.ReplaceAll(input[:idx], "(", "")
	after := strings.ReplaceAll(input[idx+1:], ")", "")

	switch {
	case after == "*":
		return Present{Desc: pre}, nil
	case strings.HasSuffix(pre, ">"):
		return GreaterOrEqual{Desc: pre[:len(pre)-1], Value: after}, nil
	case strings.HasSuffix(pre, "<"):
		return LessOrEqual{Desc: pre[:len(pre)-1], Value: after}, nil
	case strings.HasSuffix(pre, "~"):
		return Approximate{Desc: pre[:len(pre)-1], Value: after}, nil
	case strings.Contains(after, "*"):
		return parseSubstrings(pre, after)
	case strings.Contains(pre, ":"):
		return parseExtensibleMatch(pre, after)
	default:
		return Equality{Desc: pre, Value: after}, nil
	}
}

func parseSubstrings(desc, value string) (Filter, error) {
	if strings.Contains(value, "**") {
		return nil, errors.Errorf("substring assertion %q contains consecutive asterisks", value)
	}
	parts := strings.Split(value, "*")
	ss := Substrings{Desc: desc}
	first, last := 0, len(parts)-1
	if parts[first] != "" {
		ss.Initial = parts[first]
	}
	if parts[last] != "" {
		ss.Final = parts[last]
	}
	for _, mid := range parts[first+1 : last] {
		if mid != "" {
			ss.Any = append(ss.Any, mid)
		}
	}
	return ss, nil
}

func parseExtensibleMatch(pre, value string) (Filter, error) {
	em := ExtensibleMatch{MatchValue: value}
	if !strings.HasPrefix(pre, ":") {
		if strings.Contains(pre, ":dn:") {
			parts := strings.SplitN(pre, ":dn:", 2)
			em.DNAttributes = true
			em.Type = parts[0]
			if len(parts) == 2 {
				em.MatchingRule = strings.Trim(parts[1], ":")
			}
			return em, nil
		}
		if i := strings.IndexByte(pre, ':'); i != -1 {
			em.Type = pre[:i]
			em.MatchingRule = strings.Trim(pre[i+1:], ":")
		}
		return em, nil
	}

	if strings.HasPrefix(pre, ":dn:") {
		em.DNAttributes = true
		em.MatchingRule = strings.Trim(pre[4:], ":")
	} else {
		em.MatchingRule = strings.Trim(pre[1:], ":")
	}
	return em, nil
}

// RewriteBaseDNs walks f and rewrites the assertion value of any
// equality or extensible-match term whose attribute is declared
// DN-syntax in schema, replacing a srcBase suffix with dstBase. This lets
// a filter written against the source naming context still select the
// right entries once relocated under the destination suffix. Substrings,
// ordering, approximate and presence terms are returned unchanged.
func RewriteBaseDNs(f Filter, oracle *schema.Oracle, srcBase, dstBase string) Filter {
	switch v := f.(type) {
	case And:
		out := make(And, len(v))
		for i, sub := range v {
			out[i] = RewriteBaseDNs(sub, oracle, srcBase, dstBase)
		}
		return out
	case Or:
		out := make(Or, len(v))
		for i, sub := range v {
			out[i] = RewriteBaseDNs(sub, oracle, srcBase, dstBase)
		}
		return out
	case Not:
		return Not{RewriteBaseDNs(v.Filter, oracle, srcBase, dstBase)}
	case Equality:
		v.Value = rewriteValue(v.Desc, v.Value, oracle, srcBase, dstBase)
		return v
	case ExtensibleMatch:
		v.MatchValue = rewriteValue(v.Type, v.MatchValue, oracle, srcBase, dstBase)
		return v
	default:
		return f
	}
}

func rewriteValue(attr, value string, oracle *schema.Oracle, srcBase, dstBase string) string {
	if oracle == nil || !oracle.IsDNSyntax(attr) {
		return value
	}
	parsed, err := dn.Parse(value)
	if err != nil {
		return value
	}
	rel, ok := dn.StripSuffix(parsed.String(), srcBase)
	if !ok {
		return value
	}
	return dn.Join(rel, dstBase)
}
