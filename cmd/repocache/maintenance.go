package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/repocache-mcp/internal/config"
	"github.com/dshills/repocache-mcp/internal/indexer"
	"github.com/dshills/repocache-mcp/internal/storage"
)

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func newDBCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the on-disk stores",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "rollback <cache|index>",
		Short:     "Undo the latest schema migration of a store",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"cache", "index"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}

			var dir string
			var names []string
			switch args[0] {
			case "cache":
				dir, names = cfg.CacheDir, []string{storage.DefaultNamespace}
			case "index":
				dir, names = cfg.IndexDir, []string{indexer.MetadataNamespace, indexer.ContentNamespace}
			default:
				return fmt.Errorf("unknown store %q: want cache or index", args[0])
			}

			ctx := cmd.Context()
			eng, err := storage.Open(ctx, dir, names...)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Rollback(ctx); err != nil {
				return err
			}
			version, err := eng.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s store to schema %s\n", args[0], version)
			return nil
		},
	})
	return cmd
}
