/*
Package ldapclient is the thin, real network layer the rest of this module
talks through: dialing a server, reading its root DSE, pulling its
subschemaSubentry into a schema.Oracle, and running the searches the
reconciliation pipeline needs. go-dirsyn stops at parsing grammar and never
opens a socket, so this package is built directly on
github.com/go-ldap/ldap/v3, the same low-level BER encoding
(github.com/go-asn1-ber/asn1-ber) go-dirsyn already depends on, one layer
further up the stack.
*/
package ldapclient

import (
	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"

	"github.com/taladar/sync-ldap-subtrees/config"
	"github.com/taladar/sync-ldap-subtrees/schema"
	"github.com/taladar/sync-ldap-subtrees/scope"
)

// Connect dials and, if a bind DN is configured, binds to the server
// described by params.
func Connect(params config.ConnectParams) (*ldap.Conn, error) {
	tlsConfig, err := params.TLSConfig()
	if err != nil {
		return nil, err
	}

	var opts []ldap.DialOpt
	if tlsConfig != nil {
		opts = append(opts, ldap.DialWithTLSConfig(tlsConfig))
	}

	conn, err := ldap.DialURL(params.URI, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", params.URI)
	}

	if params.BindDN != "" {
		if err := conn.Bind(params.BindDN, params.BindPassword); err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "bind as %s", params.BindDN)
		}
	}

	return conn, nil
}

// RootDSE is the subset of the server's root DSE this tool consults.
type RootDSE struct {
	NamingContexts    []string
	SubschemaSubentry string
}

// QueryRootDSE reads the server's root DSE (the zero-length-DN, base-scope
// entry RFC 4512 §5.1 mandates every server publish).
func QueryRootDSE(conn *ldap.Conn) (RootDSE, error) {
	res, err := conn.Search(ldap.NewSearchRequest(
		"", ldap.ScopeBaseObject, ldap.NeverDerefAliases, 0, 0, false,
		"(objectClass=*)", []string{"namingContexts", "subschemaSubentry"}, nil,
	))
	if err != nil {
		return RootDSE{}, errors.Wrap(err, "query root DSE")
	}
	if len(res.Entries) != 1 {
		return RootDSE{}, errors.New("root DSE search returned no entry")
	}

	dse := res.Entries[0]
	return RootDSE{
		NamingContexts:    dse.GetAttributeValues("namingContexts"),
		SubschemaSubentry: dse.GetAttributeValue("subschemaSubentry"),
	}, nil
}

// QuerySchema reads the attributeTypes and matchingRules operational
// attributes off subschemaSubentryDN (as reported in the root DSE) and
// builds a schema.Oracle from them.
func QuerySchema(conn *ldap.Conn, subschemaSubentryDN string) (*schema.Oracle, error) {
	if subschemaSubentryDN == "" {
		return nil, errors.New("server published no subschemaSubentry; cannot resolve attribute syntaxes")
	}

	res, err := conn.Search(ldap.NewSearchRequest(
		subschemaSubentryDN, ldap.ScopeBaseObject, ldap.NeverDerefAliases, 0, 0, false,
		"(objectClass=subschema)", []string{"attributeTypes", "matchingRules"}, nil,
	))
	if err != nil {
		return nil, errors.Wrapf(err, "query schema at %s", subschemaSubentryDN)
	}
	if len(res.Entries) != 1 {
		return nil, errors.Errorf("subschemaSubentry %s returned no entry", subschemaSubentryDN)
	}

	entry := res.Entries[0]
	oracle, err := schema.NewOracle(
		entry.GetAttributeValues("attributeTypes"),
		entry.GetAttributeValues("matchingRules"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parse schema")
	}
	return oracle, nil
}

// Search runs a search for base/scope/filter/attributes, requesting both
// string and binary-safe representations of every returned value.
func Search(conn *ldap.Conn, base string, sc scope.Scope, filterStr string, attributes []string) ([]*ldap.Entry, error) {
	ldapScope, err := toLDAPScope(sc)
	if err != nil {
		return nil, err
	}

	res, err := conn.Search(ldap.NewSearchRequest(
		base, ldapScope, ldap.NeverDerefAliases, 0, 0, false,
		filterStr, attributes, nil,
	))
	if err != nil {
		return nil, errors.Wrapf(err, "search %s (scope %s)", base, sc)
	}
	return res.Entries, nil
}

func toLDAPScope(s scope.Scope) (int, error) {
	switch s {
	case scope.BaseObject:
		return ldap.ScopeBaseObject, nil
	case scope.SingleLevel:
		return ldap.ScopeSingleLevel, nil
	case scope.WholeSubtree:
		return ldap.ScopeWholeSubtree, nil
	default:
		return 0, errors.Errorf("unsupported search scope %v", s)
	}
}
