/*
Command sync-ldap-subtrees is the CLI entrypoint: it parses flags with
github.com/spf13/cobra, assembles a sync.Options from them, and hands off
to the orchestrator in package sync. Everything below this file is outside
the reconciliation core (CLI parsing, exit codes); the core never imports
this package.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taladar/sync-ldap-subtrees/internal/logging"
	"github.com/taladar/sync-ldap-subtrees/scope"
	"github.com/taladar/sync-ldap-subtrees/sync"
)

var log = logging.RootLogger.Sublogger("cmd")

// fatal prints err in red and exits 1, the tool's uniform error-reporting
// path for any failure surfaced from the reconciliation core.
func fatal(err error) {
	log.Error(err)
	os.Exit(1)
}

var rootConfiguration struct {
	sourceServer      string
	destinationServer string

	sourceSearchBase      string
	destinationSearchBase string

	searchScope  string
	searchFilter string
	attributes   []string

	ignoreObjectClasses []string
	ignoreAttributes    []string

	includeChildren bool

	dryRun bool
	add    bool
	update bool
	delete bool

	verbose bool
}

var rootCommand = &cobra.Command{
	Use:   "sync-ldap-subtrees",
	Short: "Reconcile a subtree of one LDAP directory onto another, rewriting DNs across the naming-context boundary.",
	RunE:  rootMain,
}

func init() {
	flags := rootCommand.Flags()

	flags.StringVar(&rootConfiguration.sourceServer, "source-ldap-server", "", "TOML connection profile for the source server (required)")
	flags.StringVar(&rootConfiguration.destinationServer, "destination-ldap-server", "", "TOML connection profile for the destination server (required)")

	flags.StringVar(&rootConfiguration.sourceSearchBase, "source-search-base", "", "full DN of the search root on the source server; entries are keyed relative to it")
	flags.StringVar(&rootConfiguration.destinationSearchBase, "destination-search-base", "", "full DN of the search root on the destination server; entries are keyed relative to it")

	flags.StringVar(&rootConfiguration.searchScope, "search-scope", "sub", "search scope: base, one or sub")
	flags.StringVar(&rootConfiguration.searchFilter, "search-filter", "(objectClass=*)", "search filter, written in the source naming context")
	flags.StringArrayVar(&rootConfiguration.attributes, "attribute", nil, "attribute to include (repeatable); omit for all attributes")

	flags.StringArrayVar(&rootConfiguration.ignoreObjectClasses, "ignore-object-class", nil, "objectClass value to drop from every entry (repeatable)")
	flags.StringArrayVar(&rootConfiguration.ignoreAttributes, "ignore-attribute", nil, "attribute name to exclude from diffing entirely (repeatable)")

	flags.BoolVar(&rootConfiguration.includeChildren, "include-children", false, "search the whole subtree on both sides with the same filter; descendants that do not match the filter are not pulled in")

	flags.BoolVar(&rootConfiguration.dryRun, "dry-run", false, "compute and log the operation plan without applying it")
	flags.BoolVar(&rootConfiguration.add, "add", false, "add entries present in source but missing from destination")
	flags.BoolVar(&rootConfiguration.update, "update", false, "modify entries present on both sides whose attributes differ")
	flags.BoolVar(&rootConfiguration.delete, "delete", false, "delete entries present in destination but missing from source")

	flags.BoolVarP(&rootConfiguration.verbose, "verbose", "v", false, "enable debug logging")

	cobra.EnableCommandSorting = false
}

func rootMain(command *cobra.Command, arguments []string) error {
	logging.DebugEnabled = rootConfiguration.verbose

	if rootConfiguration.sourceServer == "" || rootConfiguration.destinationServer == "" {
		return errArgf("--source-ldap-server and --destination-ldap-server are required")
	}
	if !rootConfiguration.add && !rootConfiguration.update && !rootConfiguration.delete {
		return errArgf("at least one of --add, --update or --delete must be given")
	}

	searchScope, err := scope.Parse(rootConfiguration.searchScope)
	if err != nil {
		return err
	}

	opts := sync.Options{
		SourceProfilePath:      rootConfiguration.sourceServer,
		DestinationProfilePath: rootConfiguration.destinationServer,

		SourceSearchBase:      rootConfiguration.sourceSearchBase,
		DestinationSearchBase: rootConfiguration.destinationSearchBase,

		SearchScope:     searchScope,
		SearchFilter:    rootConfiguration.searchFilter,
		Attributes:      rootConfiguration.attributes,
		IncludeChildren: rootConfiguration.includeChildren,

		IgnoreObjectClasses: rootConfiguration.ignoreObjectClasses,
		IgnoreAttributes:    rootConfiguration.ignoreAttributes,

		DryRun: rootConfiguration.dryRun,
		Add:    rootConfiguration.add,
		Update: rootConfiguration.update,
		Delete: rootConfiguration.delete,
	}

	return sync.Run(opts)
}

func errArgf(format string, args ...any) error {
	return &argError{msg: fmt.Sprintf(format, args...)}
}

type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }

func main() {
	rootCommand.SilenceUsage = true
	if err := rootCommand.Execute(); err != nil {
		fatal(err)
	}
}
