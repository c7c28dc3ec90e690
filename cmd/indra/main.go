// Command indra is a thin cobra CLI embedder over the core: it boots a
// node.Node from pkg/config and exposes the handful of operations needed
// to drive it from a terminal. It is explicitly not part of the core
// (spec.md §1 excludes "terminal UIs" from scope) — everything here is
// just wiring.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "indra",
		Short: "Indra's Network node",
	}
	root.PersistentFlags().String("data-dir", "", "data directory (identity/, realms/, blobs/, logs/)")
	root.PersistentFlags().String("config", "", "additional config search path")

	root.AddCommand(identityCmd())
	root.AddCommand(startCmd())
	root.AddCommand(realmCmd())
	root.AddCommand(artifactCmd())
	root.AddCommand(contactCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
