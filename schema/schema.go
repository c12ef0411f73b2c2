/*
Package schema implements the subset of [RFC 4512] §4.1 schema definitions
that the reconciliation engine needs in order to answer two questions about
an attribute: what syntax OID governs its values, and what equality rule
(in particular, whether that rule folds case) applies when comparing them.

The definition-string tokenizer and struct layout are adapted from the
SubschemaSubentry handling in [JesseCoretta/go-dirsyn]; this package keeps
only the attributeTypes and matchingRules collections the Differ and
DNRewriter actually consult, dropping objectClasses, DIT content/structure
rules and name forms, which this tool never inspects.

[RFC 4512]: https://datatracker.ietf.org/doc/html/rfc4512
[JesseCoretta/go-dirsyn]: https://github.com/JesseCoretta/go-dirsyn
*/
package schema

import (
	"strconv"
	"strings"
)

// DNSyntaxOID is the LDAPSyntaxDescription OID for "Distinguished Name"
// values (RFC 4517 §3.3.9). Any attribute whose declared Syntax equals this
// OID is subject to DN-rewriting when it crosses the source/destination
// naming-context boundary.
const DNSyntaxOID = "1.3.6.1.4.1.1466.115.121.1.12"

// AttributeType is the subset of RFC 4512 §4.1.2 fields this tool consults.
type AttributeType struct {
	OID       string
	Name      []string
	SuperType string
	Syntax    string
	Equality  string
}

// MatchingRule is the subset of RFC 4512 §4.1.3 fields this tool consults.
type MatchingRule struct {
	OID  string
	Name []string
}

// IsCaseInsensitive reports whether this matching rule folds case, i.e.
// whether it is one of the caseIgnore* families (caseIgnoreMatch,
// caseIgnoreListMatch, caseIgnoreIA5Match, ...) rather than a caseExact* or
// octet-exact rule. RFC 4517 does not expose this as a machine-readable
// flag, so — like every LDAP client that has to make this decision — we key
// off the well-known rule names.
func (m MatchingRule) IsCaseInsensitive() bool {
	for _, n := range m.Name {
		if strings.HasPrefix(strings.ToLower(n), "caseignore") {
			return true
		}
	}
	return false
}

// Oracle answers attribute-syntax and equality-rule questions for a single
// directory's published schema. It is the SchemaOracle of the reconciler
// design: the Differ and DNRewriter never parse schema definition strings
// themselves, they only call Syntax and Equality.
type Oracle struct {
	attrsByName map[string]AttributeType
	attrsByOID  map[string]AttributeType
	rulesByName map[string]MatchingRule
	rulesByOID  map[string]MatchingRule
}

// NewOracle builds an Oracle from the raw attributeTypes and matchingRules
// definition strings returned in a subschemaSubentry search (the form
// described in RFC 4512 §4.1.2 and §4.1.3, parentheses included).
func NewOracle(attributeTypes, matchingRules []string) (*Oracle, error) {
	o := &Oracle{
		attrsByName: map[string]AttributeType{},
		attrsByOID:  map[string]AttributeType{},
		rulesByName: map[string]MatchingRule{},
		rulesByOID:  map[string]MatchingRule{},
	}

	for _, raw := range matchingRules {
		mr, err := parseMatchingRule(raw)
		if err != nil {
			return nil, err
		}
		o.rulesByOID[mr.OID] = mr
		for _, n := range mr.Name {
			o.rulesByName[strings.ToLower(n)] = mr
		}
	}

	for _, raw := range attributeTypes {
		at, err := parseAttributeType(raw)
		if err != nil {
			return nil, err
		}
		o.attrsByOID[at.OID] = at
		for _, n := range at.Name {
			o.attrsByName[strings.ToLower(n)] = at
		}
	}

	return o, nil
}

func (o *Oracle) lookupAttribute(attr string) (AttributeType, bool) {
	key := strings.ToLower(attr)
	if at, ok := o.attrsByName[key]; ok {
		return o.resolveEffective(at), true
	}
	if at, ok := o.attrsByOID[attr]; ok {
		return o.resolveEffective(at), true
	}
	return AttributeType{}, false
}

// resolveEffective walks SUP chains to fill in a Syntax/Equality that an
// attribute type inherits rather than declares directly, the way RFC 4512
// §2.3 mandates subtyping resolves unset facets.
func (o *Oracle) resolveEffective(at AttributeType) AttributeType {
	seen := map[string]bool{}
	for at.Syntax == "" || at.Equality == "" {
		if at.SuperType == "" || seen[strings.ToLower(at.SuperType)] {
			break
		}
		seen[strings.ToLower(at.SuperType)] = true
		super, ok := o.attrsByName[strings.ToLower(at.SuperType)]
		if !ok {
			super, ok = o.attrsByOID[at.SuperType]
			if !ok {
				break
			}
		}
		if at.Syntax == "" {
			at.Syntax = super.Syntax
		}
		if at.Equality == "" {
			at.Equality = super.Equality
		}
		at.SuperType = super.SuperType
	}
	return at
}

// Syntax returns the syntax OID declared (or inherited) for attr, and false
// if attr is unknown to this schema.
func (o *Oracle) Syntax(attr string) (oid string, ok bool) {
	at, found := o.lookupAttribute(attr)
	if !found || at.Syntax == "" {
		return "", false
	}
	return at.Syntax, true
}

// IsDNSyntax reports whether attr's declared syntax is the DN syntax OID,
// the trigger condition for DNRewriter value rewriting.
func (o *Oracle) IsDNSyntax(attr string) bool {
	oid, ok := o.Syntax(attr)
	return ok && oid == DNSyntaxOID
}

// Equality returns the equality matching rule for attr, and false if attr
// or its matching rule are unknown.
func (o *Oracle) Equality(attr string) (MatchingRule, bool) {
	at, found := o.lookupAttribute(attr)
	if !found || at.Equality == "" {
		return MatchingRule{}, false
	}
	mr, ok := o.rulesByName[strings.ToLower(at.Equality)]
	if !ok {
		mr, ok = o.rulesByOID[at.Equality]
	}
	return mr, ok
}

// IsCaseInsensitiveEquality is a convenience wrapper combining Equality and
// MatchingRule.IsCaseInsensitive, returning false for attributes with no
// known (or no case-insensitive) equality rule.
func (o *Oracle) IsCaseInsensitiveEquality(attr string) bool {
	mr, ok := o.Equality(attr)
	return ok && mr.IsCaseInsensitive()
}

func parseAttributeType(input string) (AttributeType, error) {
	var at AttributeType
	tkz := newTokenizer(input)

	if tkz.next() && tkz.this() == "(" {
		tkz.next()
	}
	at.OID = tkz.this()

	for tkz.next() {
		switch tkz.this() {
		case ")":
			return at, nil
		case "NAME":
			at.Name = parseMultiVal(tkz)
		case "DESC":
			parseSingleVal(tkz)
		case "SUP":
			at.SuperType = tkz.nextToken()
		case "EQUALITY":
			at.Equality = tkz.nextToken()
		case "ORDERING", "SUBSTR", "SUBSTRING":
			tkz.nextToken()
		case "SYNTAX":
			at.Syntax = trimSyntaxMUB(tkz.nextToken())
		case "USAGE":
			tkz.nextToken()
		case "SINGLE-VALUE", "COLLECTIVE", "OBSOLETE", "NO-USER-MODIFICATION":
			// boolean markers this tool doesn't need to act on.
		default:
			if strings.HasPrefix(tkz.this(), "X-") {
				parseMultiVal(tkz)
			}
		}
	}

	return at, nil
}

func parseMatchingRule(input string) (MatchingRule, error) {
	var mr MatchingRule
	tkz := newTokenizer(input)

	if tkz.next() && tkz.this() == "(" {
		tkz.next()
	}
	mr.OID = tkz.this()

	for tkz.next() {
		switch tkz.this() {
		case ")":
			return mr, nil
		case "NAME":
			mr.Name = parseMultiVal(tkz)
		case "DESC":
			parseSingleVal(tkz)
		case "OBSOLETE":
			// unused
		case "SYNTAX":
			tkz.nextToken()
		default:
			if strings.HasPrefix(tkz.this(), "X-") {
				parseMultiVal(tkz)
			}
		}
	}

	return mr, nil
}

func trimSyntaxMUB(x string) string {
	if idx := strings.IndexByte(x, '{'); idx != -1 {
		return x[:idx]
	}
	return x
}

func parseMultiVal(tkz *tokenizer) []string {
	var values []string
	token := tkz.nextToken()
	if token == "(" {
		for tkz.next() {
			if tkz.this() == ")" {
				break
			}
			if tkz.this() == "$" {
				continue
			}
			values = append(values, strings.Trim(tkz.this(), "'"))
		}
	} else {
		values = append(values, strings.Trim(token, "'"))
	}
	return values
}

func parseSingleVal(tkz *tokenizer) string {
	return strings.Trim(tkz.nextToken(), "'")
}

// tokenizer splits an RFC 4512 definition string into quoted strings,
// parentheses and bare tokens, mirroring go-dirsyn's schemaTokenizer.
type tokenizer struct {
	input []rune
	pos   int
	cur   string
}

func newTokenizer(input string) *tokenizer {
	return &tokenizer{input: []rune(strings.TrimSpace(input))}
}

func (t *tokenizer) next() bool {
	t.skipWhitespace()
	if t.pos >= len(t.input) {
		return false
	}
	start := t.pos
	switch {
	case t.input[t.pos] == '\'':
		t.pos++
		for t.pos < len(t.input) && (t.input[t.pos] != '\'' || t.input[t.pos-1] == '\\') {
			t.pos++
		}
		t.pos++
	case t.input[t.pos] == '(' || t.input[t.pos] == ')':
		t.pos++
	default:
		for t.pos < len(t.input) && !isSpace(t.input[t.pos]) && t.input[t.pos] != '(' && t.input[t.pos] != ')' {
			t.pos++
		}
	}
	t.cur = string(t.input[start:t.pos])
	return true
}

func (t *tokenizer) this() string { return t.cur }

func (t *tokenizer) nextToken() string {
	t.next()
	return t.cur
}

func (t *tokenizer) skipWhitespace() {
	for t.pos < len(t.input) && isSpace(t.input[t.pos]) {
		t.pos++
	}
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

// ParseUint is exported for callers that need to interpret a
// MinUpperBounds clause independently of AttributeType parsing.
func ParseUint(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) }
