// Command sitectl runs the site's maintenance jobs: seeding page content,
// migrating Cloudinary assets to R2, importing blog posts and exporting
// contact submissions to Postgres.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"altiora-site/pkg/config"
	"altiora-site/pkg/db"
	"altiora-site/pkg/logging"

	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	verbose bool
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "sitectl",
	Short: "Maintenance jobs for the Altiora Infotech site",
	Long: `sitectl runs one-shot jobs against the site's databases and storage.

Configuration comes from config.yaml (or CONFIG_PATH) and the same
environment variables the server reads.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logging.Init(logging.Config{Level: level, Format: "console"})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall job timeout")

	rootCmd.AddCommand(seedCmd, migrateAssetsCmd, importBlogCmd, exportContactsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// jobContext is cancelled by SIGINT/SIGTERM or after --timeout.
func jobContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// connectMongo opens the content database or fails the command.
func connectMongo(ctx context.Context) (*db.Client, error) {
	client := db.NewClient(cfg.Mongo.URI, cfg.Mongo.Database)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	defer cancel()
	if err := client.Connect(pingCtx); err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	return client, nil
}

func closeMongo(client *db.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Close(ctx); err != nil {
		logging.Warn().Err(err).Msg("closing MongoDB")
	}
}
