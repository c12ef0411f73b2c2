/*
Package sync is the orchestrator: it wires connection, schema discovery,
filter transformation, search, diff, planning and apply into the single
linear pipeline a sync run executes, stopping at the first stage that
fails the way the rest of this module's error handling does.
*/
package sync

import (
	"github.com/pkg/errors"

	"github.com/taladar/sync-ldap-subtrees/apply"
	"github.com/taladar/sync-ldap-subtrees/config"
	"github.com/taladar/sync-ldap-subtrees/diff"
	"github.com/taladar/sync-ldap-subtrees/entry"
	"github.com/taladar/sync-ldap-subtrees/filter"
	"github.com/taladar/sync-ldap-subtrees/internal/logging"
	"github.com/taladar/sync-ldap-subtrees/ldapclient"
	"github.com/taladar/sync-ldap-subtrees/plan"
	"github.com/taladar/sync-ldap-subtrees/scope"
)

var log = logging.RootLogger.Sublogger("sync")

// Options is the full set of parameters a sync run takes, matching the
// tool's command-line surface.
type Options struct {
	SourceProfilePath      string
	DestinationProfilePath string

	SourceSearchBase      string
	DestinationSearchBase string

	SearchScope     scope.Scope
	SearchFilter    string
	Attributes      []string
	IncludeChildren bool

	IgnoreObjectClasses []string
	IgnoreAttributes    []string

	DryRun bool
	Add    bool
	Update bool
	Delete bool
}

// binarySyntaxOIDs lists the RFC 4517 syntaxes this tool treats as
// binary-valued rather than text. Attributes with any other (or unknown)
// syntax are read as text.
var binarySyntaxOIDs = map[string]bool{
	"1.3.6.1.4.1.1466.115.121.1.5":  true, // Binary
	"1.3.6.1.4.1.1466.115.121.1.8":  true, // Certificate
	"1.3.6.1.4.1.1466.115.121.1.28": true, // JPEG
	"1.3.6.1.4.1.1466.115.121.1.40": true, // Octet String
}

// Run executes a full sync: connect both sides, resolve schema, search,
// diff, plan and (unless opts.DryRun) apply.
func Run(opts Options) error {
	srcParams, err := config.Load(opts.SourceProfilePath)
	if err != nil {
		return err
	}
	dstParams, err := config.Load(opts.DestinationProfilePath)
	if err != nil {
		return err
	}

	srcConn, err := ldapclient.Connect(srcParams)
	if err != nil {
		return errors.Wrap(err, "connect to source")
	}
	defer srcConn.Close()

	dstConn, err := ldapclient.Connect(dstParams)
	if err != nil {
		return errors.Wrap(err, "connect to destination")
	}
	defer dstConn.Close()

	srcDSE, err := ldapclient.QueryRootDSE(srcConn)
	if err != nil {
		return errors.Wrap(err, "query source root DSE")
	}

	oracle, err := ldapclient.QuerySchema(srcConn, srcDSE.SubschemaSubentry)
	if err != nil {
		return errors.Wrap(err, "query source schema")
	}

	searchScope := opts.SearchScope
	if opts.IncludeChildren {
		searchScope = scope.WholeSubtree
	}

	srcFilter, err := filter.Parse(opts.SearchFilter)
	if err != nil {
		return errors.Wrap(err, "parse search filter")
	}
	dstFilter := filter.RewriteBaseDNs(srcFilter, oracle, opts.SourceSearchBase, opts.DestinationSearchBase)

	textSyntaxes := func(attr string) bool {
		oid, ok := oracle.Syntax(attr)
		return !ok || !binarySyntaxOIDs[oid]
	}

	log.Printf("searching source subtree %s", opts.SourceSearchBase)
	srcResults, err := ldapclient.Search(srcConn, opts.SourceSearchBase, searchScope, srcFilter.String(), opts.Attributes)
	if err != nil {
		return errors.Wrap(err, "search source")
	}
	srcStore := entry.NewStore(opts.SourceSearchBase)
	entry.Populate(srcStore, srcResults, textSyntaxes)

	log.Printf("searching destination subtree %s", opts.DestinationSearchBase)
	dstResults, err := ldapclient.Search(dstConn, opts.DestinationSearchBase, searchScope, dstFilter.String(), opts.Attributes)
	if err != nil {
		return errors.Wrap(err, "search destination")
	}
	dstStore := entry.NewStore(opts.DestinationSearchBase)
	entry.Populate(dstStore, dstResults, textSyntaxes)

	differ := diff.New(oracle, opts.SourceSearchBase, opts.DestinationSearchBase, opts.IgnoreAttributes, opts.IgnoreObjectClasses)
	ops := differ.Diff(srcStore, dstStore)

	ops = filterByOptions(ops, opts)
	ops = plan.Sort(ops)

	log.Printf("%d operation(s) planned", len(ops))

	if opts.DryRun {
		for _, op := range ops {
			log.Printf("dry-run: %s", describe(op))
		}
		return nil
	}

	applier := apply.New(dstConn, opts.DestinationSearchBase, nil)
	if err := applier.Apply(ops); err != nil {
		return errors.Wrap(err, "apply operations")
	}
	return nil
}

// filterByOptions drops operation kinds the caller did not ask to perform,
// matching the --add/--update/--delete command-line switches.
func filterByOptions(ops []diff.Operation, opts Options) []diff.Operation {
	out := make([]diff.Operation, 0, len(ops))
	for _, op := range ops {
		switch op.(type) {
		case diff.AddOp:
			if opts.Add {
				out = append(out, op)
			}
		case diff.ModifyOp:
			if opts.Update {
				out = append(out, op)
			}
		case diff.DeleteOp:
			if opts.Delete {
				out = append(out, op)
			}
		}
	}
	return out
}

func describe(op diff.Operation) string {
	switch v := op.(type) {
	case diff.AddOp:
		return "add " + v.Entry.RelativeDN
	case diff.DeleteOp:
		return "delete " + v.RelativeDN
	case diff.ModifyOp:
		return "modify " + v.RelativeDN
	default:
		return "unknown operation"
	}
}
