package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tablesync",
	Short: "Copy and synchronize tables from MySQL/SQLite into PostgreSQL",
}

var copyCmd = &cobra.Command{
	Use:   "copy [config.toml]",
	Short: "Full/append copy of all configured tables",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(args, false)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [config.toml]",
	Short: "Differential update of all configured tables",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(args, true)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	rootCmd.AddCommand(copyCmd, syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigration(args []string, sync bool) error {
	// Resolve config path: positional arg takes precedence over --config flag
	cfgPath := configPath
	if len(args) > 0 {
		cfgPath = args[0]
	}
	if cfgPath == "" {
		return fmt.Errorf("config file required: tablesync <copy|sync> <config.toml>")
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if sync {
		if err := cfg.validateForSync(); err != nil {
			return err
		}
	}

	ctx := context.Background()
	start := time.Now()

	mode := "copy"
	if sync {
		mode = "sync"
	}
	log.Printf("tablesync: %s to PostgreSQL (%s)", cfg.Source.Type, mode)
	log.Printf("config: workers=%d chunk_size=%d trim_text=%t tables=%d",
		cfg.Workers, cfg.ChunkSize, cfg.TrimText, len(cfg.Tables))

	src, err := newSourceDB(cfg.Source.Type)
	if err != nil {
		return err
	}

	log.Printf("connecting to %s source...", src.Name())
	srcDB, err := src.OpenDB(cfg.Source.DSN)
	if err != nil {
		return err
	}
	defer srcDB.Close()
	srcDB.SetMaxOpenConns(cfg.Workers)
	if err := srcDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping source: %w", err)
	}

	log.Printf("connecting to PostgreSQL...")
	pool, err := pgxpool.New(ctx, cfg.Target.DSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	if err := execHookFiles(ctx, pool, cfg, cfg.Hooks.BeforeCopy, "before_copy", nil); err != nil {
		return err
	}

	m := newMigrator(src, srcDB, pool, cfg)
	runErr := m.runTables(ctx, cfg.Tables, cfg.Workers, sync)

	if err := execHookFiles(ctx, pool, cfg, cfg.Hooks.AfterCopy, "after_copy", nil); err != nil {
		return err
	}

	log.Printf("run completed in %s", time.Since(start).Round(time.Millisecond))
	return runErr
}
