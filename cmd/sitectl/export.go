package main

import (
	"errors"
	"fmt"

	"altiora-site/pkg/db"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/replication"

	"github.com/spf13/cobra"
)

var exportContactsCmd = &cobra.Command{
	Use:   "export-contacts",
	Short: "Copy contact submissions from MongoDB into Postgres",
	Long: `Copy every contact submission into the contact_message table.

The target is POSTGRES_DSN, or a Supabase project given by SUPABASE_URL and
SUPABASE_DB_PASSWORD (or SUPABASE_CONNECTION_STRING). Rows already present
are skipped, so the export can be re-run.`,
	RunE: runExportContacts,
}

func init() {
	f := exportContactsCmd.Flags()
	f.String("postgres-dsn", "", "Postgres DSN (overrides POSTGRES_DSN)")
	f.String("supabase-url", "", "Supabase project URL (overrides SUPABASE_URL)")
	f.String("supabase-password", "", "Supabase database password")
	f.String("supabase-key", "", "Supabase service role key, used to verify the row count")
	f.Int("batch-size", 0, "Rows per insert transaction")
	f.Int("workers", 0, "Concurrent batches")
}

func runExportContacts(cmd *cobra.Command, args []string) error {
	applyExportFlags(cmd)
	if err := cfg.ValidateExport(); err != nil {
		return err
	}
	e := cfg.Export

	ctx, cancel := jobContext(cmd.Context())
	defer cancel()

	mongo, err := connectMongo(ctx)
	if err != nil {
		return err
	}
	defer closeMongo(mongo)

	var (
		target   db.DBProvider
		supabase *db.SupabaseClient
	)
	if e.UsesSupabase() {
		supabase = db.NewSupabaseClient(db.SupabaseConfig{
			ConnectionString: e.SupabaseConnectionString,
			ProjectURL:       e.SupabaseURL,
			APIKey:           e.SupabaseAPIKey,
			Password:         e.SupabasePassword,
		})
		if err := supabase.Connect(ctx); err != nil {
			return err
		}
		target = supabase
	} else {
		pg := db.NewPostgresClient(db.PostgresConfig{DSN: e.PostgresDSN})
		if err := pg.Connect(ctx); err != nil {
			return err
		}
		target = pg
	}
	defer target.Close()

	rep, err := replication.NewReplicator(replication.Config{
		Mongo:     mongo,
		Postgres:  target,
		BatchSize: e.BatchSize,
		Workers:   e.Workers,
	})
	if err != nil {
		return err
	}

	stats, err := rep.ReplicateContacts(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "read %d, inserted %d, skipped %d\n", stats.Read, stats.Inserted, stats.Skipped)
	if err != nil {
		return err
	}

	if supabase != nil {
		count, err := supabase.CountRows(replication.ContactTable)
		switch {
		case errors.Is(err, db.ErrNoSDK):
		case err != nil:
			logging.Warn().Err(err).Msg("could not verify row count")
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s now holds %d rows\n", replication.ContactTable, count)
		}
	}
	return nil
}

// applyExportFlags lets flags override file and environment settings.
func applyExportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if v, _ := f.GetString("postgres-dsn"); v != "" {
		cfg.Export.PostgresDSN = v
	}
	if v, _ := f.GetString("supabase-url"); v != "" {
		cfg.Export.SupabaseURL = v
	}
	if v, _ := f.GetString("supabase-password"); v != "" {
		cfg.Export.SupabasePassword = v
	}
	if v, _ := f.GetString("supabase-key"); v != "" {
		cfg.Export.SupabaseAPIKey = v
	}
	if v, _ := f.GetInt("batch-size"); v > 0 {
		cfg.Export.BatchSize = v
	}
	if v, _ := f.GetInt("workers"); v > 0 {
		cfg.Export.Workers = v
	}
}
