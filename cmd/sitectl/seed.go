package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"altiora-site/pkg/seed"

	"github.com/spf13/cobra"
)

var (
	seedList   bool
	seedDryRun bool
	seedDir    string
)

var seedCmd = &cobra.Command{
	Use:   "seed [name...]",
	Short: "Upsert built-in page content into MongoDB",
	Long: `Upsert the built-in service pages, main pages and projects.

Each document is matched on its slug (or pageId/serviceType), so running
the command twice leaves one copy of every page. With no names every seed
is applied.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedList, "list", false, "List available seeds and exit")
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Validate and print what would be written")
	seedCmd.Flags().StringVar(&seedDir, "dir", "", "Load seeds from this directory instead of the built-in set")
}

func runSeed(cmd *cobra.Command, args []string) error {
	all, err := loadSeeds()
	if err != nil {
		return err
	}

	if seedList {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCOLLECTION\tKEY\tDOCUMENTS")
		for _, s := range all {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.Name, s.Collection, s.Key, len(s.Documents))
		}
		return w.Flush()
	}

	selected, err := seed.Select(all, args)
	if err != nil {
		return err
	}

	ctx, cancel := jobContext(cmd.Context())
	defer cancel()

	var store seed.Upserter
	if !seedDryRun {
		client, err := connectMongo(ctx)
		if err != nil {
			return err
		}
		defer closeMongo(client)
		store = client
	}

	reports, err := seed.Run(ctx, store, selected)
	for _, r := range reports {
		fmt.Fprintf(cmd.OutOrStdout(), "%-28s inserted=%d updated=%d unchanged=%d\n", r.Seed, r.Inserted, r.Updated, r.Unchanged)
	}
	return err
}

func loadSeeds() ([]seed.Seed, error) {
	if seedDir == "" {
		return seed.Builtin()
	}
	return seed.LoadFS(os.DirFS(seedDir), ".")
}
