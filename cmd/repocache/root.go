package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/repocache-mcp/internal/config"
	"github.com/dshills/repocache-mcp/internal/mcp"
	"github.com/dshills/repocache-mcp/internal/observe"
	"github.com/dshills/repocache-mcp/internal/storage"
	"github.com/dshills/repocache-mcp/internal/syscalls"
)

type rootFlags struct {
	configPath string
	verbose    bool
	jsonLogs   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "repocache",
		Short: "Cached GitHub metadata and code index over MCP",
		Long: `repocache answers repository metadata queries through a persistent
read-through cache and keeps a local index of fetched source files.
Run "repocache serve" to expose it to an MCP client over stdio.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default ~/.repocache/config.yaml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&flags.jsonLogs, "json-logs", false, "Write logs as JSON")

	root.AddCommand(
		newServeCmd(flags),
		newVersionCmd(),
		newIndexCmd(flags),
		newGetCodeCmd(flags),
		newListIndexedCmd(flags),
		newConfigCmd(flags),
		newDBCmd(flags),
	)
	return root
}

// setup loads configuration and opens the stores. Logs always go to stderr.
func setup(ctx context.Context, flags *rootFlags, errOut io.Writer) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.verbose {
		cfg.Verbose = true
	}
	if flags.jsonLogs {
		cfg.LogFormat = observe.FormatJSON
	}

	obs := observe.New(errOut, cfg.LogFormat, cfg.Verbose)
	return openApp(ctx, cfg, obs)
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := setup(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.obs.Log().Error().Err(err).Msg("failed to close stores")
				}
			}()

			server := mcp.NewServer(a.svc, a.obs)

			// Handle shutdown signals
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			}()

			select {
			case sig := <-sigChan:
				a.obs.Log().Info().Str("signal", sig.String()).Msg("shutting down")
				cancel()
				<-errChan
				return nil
			case err := <-errChan:
				if err != nil && ctx.Err() == nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "repocache MCP Server\n")
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		},
	}
}

func newIndexCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index <owner> <repo> <path>...",
		Short: "Fetch files from a repository and add them to the content index",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := syscalls.WithCaller(cmd.Context(), "cli:index")
			a, err := setup(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.svc.IndexRemoteFiles(ctx, args[0], args[1], args[2:])
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), stats); err != nil {
				return err
			}
			if stats.Failed > 0 {
				return fmt.Errorf("%d of %d files failed to index", stats.Failed, len(args)-2)
			}
			return nil
		},
	}
}

func newGetCodeCmd(flags *rootFlags) *cobra.Command {
	var metadataOnly bool
	cmd := &cobra.Command{
		Use:   "get-code <owner> <repo> <path>",
		Short: "Print an indexed file body",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			rec, content, found, err := a.svc.GetIndexedCode(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s/%s:%s is not indexed", args[0], args[1], args[2])
			}
			if metadataOnly {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), content)
			return err
		},
	}
	cmd.Flags().BoolVar(&metadataOnly, "metadata", false, "Print the metadata record instead of the body")
	return cmd
}

func newListIndexedCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list-indexed [owner repo]",
		Short: "List metadata of indexed files",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or <owner> <repo>, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			var owner, repo string
			if len(args) == 2 {
				owner, repo = args[0], args[1]
			}
			records, err := a.svc.ListIndexed(cmd.Context(), owner, repo)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
