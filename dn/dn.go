/*
Package dn implements the distinguishedName and relativeDistinguishedName
grammar productions from [RFC 4514] along with the reverse-component
ordering that the reconciliation planner uses to sequence directory
operations.

The parser, escaping and folding logic are derived from the DN handling in
[JesseCoretta/go-dirsyn], which itself credits the go-ldap/v3 DN parser.

[RFC 4514]: https://datatracker.ietf.org/doc/html/rfc4514
[JesseCoretta/go-dirsyn]: https://github.com/JesseCoretta/go-dirsyn
*/
package dn

import (
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// AttributeTypeAndValue is a single "type=value" pair within an RDN.
type AttributeTypeAndValue struct {
	Type  string
	Value string
}

func (a *AttributeTypeAndValue) setType(s string) error {
	v, err := decodeString(s)
	if err != nil {
		return err
	}
	a.Type = v
	return nil
}

func (a *AttributeTypeAndValue) setValue(s string) error {
	if len(s) > 0 && s[0] == '#' {
		v, err := decodeHexEncodedValue(s[1:])
		if err != nil {
			return err
		}
		a.Value = v
		return nil
	}
	v, err := decodeString(s)
	if err != nil {
		return err
	}
	a.Value = v
	return nil
}

// String renders the pair the way it must appear in a normalized DN: the
// type is folded to lowercase, the value is not.
func (a *AttributeTypeAndValue) String() string {
	return encodeDNComponent(strings.ToLower(a.Type), false) + "=" + encodeDNComponent(a.Value, true)
}

// Equal compares two pairs ignoring the case of the attribute type only.
func (a *AttributeTypeAndValue) Equal(other *AttributeTypeAndValue) bool {
	return strings.EqualFold(a.Type, other.Type) && a.Value == other.Value
}

// EqualFold compares two pairs ignoring the case of both type and value.
func (a *AttributeTypeAndValue) EqualFold(other *AttributeTypeAndValue) bool {
	return strings.EqualFold(a.Type, other.Type) && strings.EqualFold(a.Value, other.Value)
}

// RDN is a relativeDistinguishedName: one or more AttributeTypeAndValue
// pairs joined by "+".
type RDN struct {
	Attributes []*AttributeTypeAndValue
}

// String renders the RDN with its attributes sorted ascending, matching the
// normalized form used for comparison and for map keys in an EntryStore.
func (r *RDN) String() string {
	parts := make([]string, len(r.Attributes))
	for i, a := range r.Attributes {
		parts[i] = a.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, "+")
}

// Equal reports whether two RDNs hold the same attribute/value set,
// irrespective of attribute order.
func (r *RDN) Equal(other *RDN) bool {
	if len(r.Attributes) != len(other.Attributes) {
		return false
	}
	return r.hasAll(other.Attributes, (*AttributeTypeAndValue).Equal) &&
		other.hasAll(r.Attributes, (*AttributeTypeAndValue).Equal)
}

// EqualFold is Equal with case-insensitive value comparison too.
func (r *RDN) EqualFold(other *RDN) bool {
	if len(r.Attributes) != len(other.Attributes) {
		return false
	}
	return r.hasAll(other.Attributes, (*AttributeTypeAndValue).EqualFold) &&
		other.hasAll(r.Attributes, (*AttributeTypeAndValue).EqualFold)
}

func (r *RDN) hasAll(attrs []*AttributeTypeAndValue, eq func(*AttributeTypeAndValue, *AttributeTypeAndValue) bool) bool {
	for _, want := range attrs {
		found := false
		for _, have := range r.Attributes {
			if eq(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// DN is a parsed distinguishedName: an ordered sequence of RDNs, outermost
// (leaf) first, matching server and RFC 4514 string order.
type DN struct {
	RDNs []*RDN
}

// String renders the normalized string form of the DN.
func (d *DN) String() string {
	parts := make([]string, len(d.RDNs))
	for i, r := range d.RDNs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// IsZero reports whether the DN has no RDNs (the root / empty DN).
func (d *DN) IsZero() bool { return d == nil || len(d.RDNs) == 0 }

// Equal reports whether two DNs are the same, per distinguishedNameMatch
// (RFC 4517 §4.2.15): same RDN count, each pair equal by position.
func (d *DN) Equal(other *DN) bool {
	if len(d.RDNs) != len(other.RDNs) {
		return false
	}
	for i := range d.RDNs {
		if !d.RDNs[i].Equal(other.RDNs[i]) {
			return false
		}
	}
	return true
}

// EqualFold is Equal with case-insensitive RDN comparison.
func (d *DN) EqualFold(other *DN) bool {
	if len(d.RDNs) != len(other.RDNs) {
		return false
	}
	for i := range d.RDNs {
		if !d.RDNs[i].EqualFold(other.RDNs[i]) {
			return false
		}
	}
	return true
}

// AncestorOf reports whether other is a (possibly distant) child of d: d's
// RDN sequence, taken from the root end, is a strict suffix of other's.
//
// DNs in this package are stored leaf-first (as servers return them), so
// the "root" end is the tail of the RDNs slice.
func (d *DN) AncestorOf(other *DN) bool {
	if len(d.RDNs) >= len(other.RDNs) {
		return false
	}
	offset := len(other.RDNs) - len(d.RDNs)
	for i := range d.RDNs {
		if !d.RDNs[i].Equal(other.RDNs[offset+i]) {
			return false
		}
	}
	return true
}

// Depth returns the number of RDNs, i.e. how far the DN sits below the
// search base it was stripped against.
func (d *DN) Depth() int { return len(d.RDNs) }

// Less implements the reverse-component ordering described in the
// reconciliation spec: an ancestor DN always compares less than its
// descendant. DNs that are unrelated (neither an ancestor of the other)
// fall back to comparing their root-to-leaf RDN strings, which gives a
// total, stable order for sorting.
func Less(a, b *DN) bool {
	if a.AncestorOf(b) {
		return true
	}
	if b.AncestorOf(a) {
		return false
	}
	return rootFirstString(a) < rootFirstString(b)
}

func rootFirstString(d *DN) string {
	parts := make([]string, len(d.RDNs))
	for i, r := range d.RDNs {
		parts[len(d.RDNs)-1-i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Parse parses a DN string per RFC 4514 §3. An empty string parses to the
// zero-RDN root DN without error.
func Parse(s string) (*DN, error) {
	result := &DN{RDNs: make([]*RDN, 0)}
	if strings.TrimSpace(s) == "" {
		return result, nil
	}

	var (
		rdn      = &RDN{}
		attr     = &AttributeTypeAndValue{}
		escaping bool
		startPos int
		flush    = func(endOfRDN bool) {
			rdn.Attributes = append(rdn.Attributes, attr)
			attr = &AttributeTypeAndValue{}
			if endOfRDN {
				result.RDNs = append(result.RDNs, rdn)
				rdn = &RDN{}
			}
		}
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaping:
			escaping = false
		case c == '\\':
			escaping = true
		case c == '=' && len(attr.Type) == 0:
			if err := attr.setType(s[startPos:i]); err != nil {
				return nil, err
			}
			startPos = i + 1
		case isDNDelimiter(c):
			if len(attr.Type) == 0 {
				return result, errors.New("dn: incomplete type, value pair")
			}
			if err := attr.setValue(s[startPos:i]); err != nil {
				return nil, err
			}
			startPos = i + 1
			flush(c == ',' || c == ';')
		}
	}

	if len(attr.Type) == 0 {
		return result, errors.New("dn: ended with incomplete type, value pair")
	}
	if err := attr.setValue(s[startPos:]); err != nil {
		return result, err
	}
	flush(true)

	return result, nil
}

func isDNDelimiter(c byte) bool { return c == ',' || c == '+' || c == ';' }

func stripLeadingAndTrailingSpaces(s string) string {
	trimmed := strings.Trim(s, " ")
	if len(trimmed) > 0 && trimmed[len(trimmed)-1] == '\\' && len(s) > 0 && s[len(s)-1] == ' ' {
		trimmed += " "
	}
	return trimmed
}

func decodeString(str string) (string, error) {
	s := []rune(stripLeadingAndTrailingSpaces(str))
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteRune(c)
			continue
		}
		if i+1 >= len(s) {
			return "", errors.New("dn: corrupted escaped character in " + string(s))
		}
		switch s[i+1] {
		case ' ', '"', '#', '+', ',', ';', '<', '=', '>', '\\':
			b.WriteRune(s[i+1])
			i++
			continue
		}
		if i+2 >= len(s) {
			return "", errors.New("dn: invalid escaped byte " + string(s[i+1]))
		}
		xx := []byte(string(s[i+1 : i+3]))
		dst := []byte{0}
		n, err := hex.Decode(dst, xx)
		if err != nil {
			return "", errors.New("dn: failed to decode escaped character: " + err.Error())
		}
		if n != 1 {
			return "", errors.New("dn: expected 1 byte when un-escaping")
		}
		b.WriteByte(dst[0])
		i += 2
	}
	return b.String(), nil
}

// encodeDNComponent escapes a DN type or value per RFC 4514 §2.4.
func encodeDNComponent(value string, isValue bool) string {
	var b strings.Builder
	escapeChar := func(c byte) { b.WriteByte('\\'); b.WriteByte(c) }
	escapeHex := func(c byte) { b.WriteByte('\\'); b.WriteString(hex.EncodeToString([]byte{c})) }

	for i := 0; i < len(value); i++ {
		c := value[i]
		if i == 0 && (c == ' ' || c == '#') {
			escapeChar(c)
			continue
		}
		if i == len(value)-1 && c == ' ' {
			escapeChar(c)
			continue
		}
		switch c {
		case '"', '+', ',', ';', '<', '>', '\\':
			escapeChar(c)
			continue
		}
		if !isValue && c == '=' {
			escapeChar(c)
			continue
		}
		if c < ' ' || c > '~' {
			escapeHex(c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// decodeHexEncodedValue decodes the "#<hex BER>" form of an attribute value
// (RFC 4514 §2.4 / RFC 4517 §3.3.21 "SHARP BitString" sibling production)
// by BER-decoding the payload and returning its raw data as a string.
func decodeHexEncodedValue(str string) (string, error) {
	decoded, err := hex.DecodeString(str)
	if err != nil {
		return "", errors.New("dn: failed to decode hex value: " + err.Error())
	}
	packet, err := ber.DecodePacketErr(decoded)
	if err != nil {
		return "", errors.New("dn: failed to decode BER value: " + err.Error())
	}
	return packet.Data.String(), nil
}

// StripSuffix removes the trailing ",<baseDN>" suffix from full, returning
// the relative DN that serves as an EntryStore key. The key is returned in
// normalized form (attribute types lowercased, multi-valued RDN parts
// sorted, values re-escaped), so reattaching it to its base reproduces the
// original DN text only when that DN was already in normalized form.
func StripSuffix(full, base string) (relative string, ok bool) {
	fullDN, err := Parse(full)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(base) == "" {
		return fullDN.String(), true
	}
	baseDN, err := Parse(base)
	if err != nil {
		return "", false
	}
	if baseDN.IsZero() {
		return fullDN.String(), true
	}
	if len(fullDN.RDNs) < len(baseDN.RDNs) {
		return "", false
	}
	tailOffset := len(fullDN.RDNs) - len(baseDN.RDNs)
	tail := &DN{RDNs: fullDN.RDNs[tailOffset:]}
	if !tail.EqualFold(baseDN) {
		return "", false
	}
	rel := &DN{RDNs: fullDN.RDNs[:tailOffset]}
	return rel.String(), true
}

// Join reattaches a relative DN to a base DN to produce a full DN string,
// the inverse of StripSuffix. When relative is empty, base is returned
// unchanged (the entry is the base entry itself).
func Join(relative, base string) string {
	if relative == "" {
		return base
	}
	if base == "" {
		return relative
	}
	return relative + "," + base
}
