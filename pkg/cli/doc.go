// Package cli provides the building blocks of the realtalk command line.
//
// Configuration lives in ~/.realtalk/<app>/config.yaml and holds kubectl-like
// named contexts, each carrying the credentials and defaults of one Realtime
// API account. Print renders results as YAML or JSON, LoadRequest reads
// YAML or JSON request files, Query filters values with jq expressions and
// ItemStyles renders conversation items for the terminal.
//
//	cfg, err := cli.LoadConfig("realtalk")
//	if err != nil {
//	    return err
//	}
//	ctx, err := cfg.ResolveContext(contextName)
package cli
