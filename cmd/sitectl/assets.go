package main

import (
	"fmt"
	"sort"

	"altiora-site/pkg/assets"
	"altiora-site/pkg/httpclient"
	"altiora-site/pkg/storage"

	"github.com/spf13/cobra"
)

var (
	assetsDryRun  bool
	assetsWorkers int
	assetsPrefix  string
)

var migrateAssetsCmd = &cobra.Command{
	Use:   "migrate-assets [root...]",
	Short: "Copy Cloudinary assets to R2 and rewrite references",
	Long: `Scan source files for res.cloudinary.com URLs of the configured cloud,
upload each asset to R2 and rewrite the files to point at the R2 public URL.

Roots default to the current directory. URLs that fail to transfer are
reported and left untouched.`,
	RunE: runMigrateAssets,
}

func init() {
	migrateAssetsCmd.Flags().BoolVar(&assetsDryRun, "dry-run", false, "Report planned changes without uploading or rewriting")
	migrateAssetsCmd.Flags().IntVar(&assetsWorkers, "workers", 4, "Concurrent transfers")
	migrateAssetsCmd.Flags().StringVar(&assetsPrefix, "prefix", "migrated", "Object key prefix in the bucket")
}

func runMigrateAssets(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateCloudinary(); err != nil {
		return err
	}
	roots := args
	if len(roots) == 0 {
		roots = []string{"."}
	}

	opts := assets.Options{Prefix: assetsPrefix, Workers: assetsWorkers, DryRun: assetsDryRun}
	scanner := assets.NewScanner(cfg.Cloudinary.CloudName)

	var migrator *assets.Migrator
	switch {
	case assetsDryRun && cfg.ValidateR2() != nil:
		// Planned URLs show bare object keys without a public base.
		migrator = assets.NewMigrator(scanner, nil, nil, opts)
	default:
		if err := cfg.ValidateR2(); err != nil {
			return err
		}
		r2, err := storage.NewR2Client(cfg.R2)
		if err != nil {
			return fmt.Errorf("create R2 client: %w", err)
		}
		migrator = assets.NewMigrator(scanner, httpclient.NewClient(httpclient.CloudflareClient), r2, opts)
	}

	ctx, cancel := jobContext(cmd.Context())
	defer cancel()

	report, err := migrator.Run(ctx, roots...)
	if err != nil {
		return err
	}
	printAssetReport(cmd, report)
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d asset(s) failed to migrate", len(report.Failed))
	}
	return nil
}

func printAssetReport(cmd *cobra.Command, r *assets.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scanned %d files, %d reference Cloudinary, %d unique URLs\n", r.FilesScanned, r.FilesReferring, r.URLsFound)

	if r.DryRun {
		for _, old := range sortedKeys(r.Planned) {
			fmt.Fprintf(out, "  would migrate %s\n      -> %s\n", old, r.Planned[old])
		}
		return
	}
	fmt.Fprintf(out, "migrated %d, failed %d, rewrote %d files\n", len(r.Migrated), len(r.Failed), len(r.FilesRewritten))
	for _, old := range sortedKeys(r.Failed) {
		fmt.Fprintf(out, "  failed %s: %s\n", old, r.Failed[old])
	}
	for _, f := range r.FilesRewritten {
		fmt.Fprintf(out, "  rewrote %s\n", f)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
