package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tfcanon/tfcanon/internal/alert"
	"github.com/tfcanon/tfcanon/internal/config"
	"github.com/tfcanon/tfcanon/internal/graph"
	"github.com/tfcanon/tfcanon/internal/scanner"
	"github.com/tfcanon/tfcanon/internal/server"
	"github.com/tfcanon/tfcanon/internal/store"
	"github.com/tfcanon/tfcanon/internal/transform"
)

var (
	version   = "dev"
	cfgFile   string
	dbPath    string
	logFormat string
	logLevel  string
	logger    *slog.Logger
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "tfcanon",
		Short: "tfcanon — canonical Terraform AWS inventories",
		Long:  "Transforms Terraform AWS configuration into deterministic, canonical JSON inventories with per-service classification, snapshot history, and dependency analysis.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			opts := &slog.HandlerOptions{Level: level}
			switch logFormat {
			case "json":
				logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
			case "text":
				logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
			default:
				return fmt.Errorf("invalid --log-format %q (use: text, json)", logFormat)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tfcanon.yaml)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text, json)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		transformCmd(),
		snapshotsCmd(),
		diffCmd(),
		impactCmd(),
		depsCmd(),
		exportCmd(),
		serveCmd(),
		dbCmd(),
		versionCmd(),
		completionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore() (*store.SQLiteStore, *config.Config) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}

	path := cfg.Storage.Path
	if dbPath != "" {
		path = dbPath
	}

	st, err := store.NewSQLiteStore(path)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}

	if err := st.Init(context.Background()); err != nil {
		logger.Error("initializing database", "error", err)
		os.Exit(1)
	}

	return st, cfg
}

// openStoreAndEngine returns the SQLite store and an Engine. If Memgraph is
// configured and reachable it returns a MemgraphEngine; otherwise it falls
// back to LocalEngine (in-memory BFS).
func openStoreAndEngine() (*store.SQLiteStore, graph.Engine, *config.Config) {
	st, cfg := openStore()
	localEngine := graph.NewLocalEngine(st)
	var engine graph.Engine = localEngine

	if cfg.Storage.Memgraph.Enabled {
		mgEngine, err := graph.NewMemgraphEngine(
			cfg.Storage.Memgraph.URI,
			cfg.Storage.Memgraph.Username,
			cfg.Storage.Memgraph.Password,
			localEngine,
			logger,
		)
		if err != nil {
			logger.Warn("memgraph unavailable, using local graph engine", "error", err)
		} else {
			engine = mgEngine
			logger.Info("memgraph connected", "uri", cfg.Storage.Memgraph.URI)
		}
	}

	return st, engine, cfg
}

func buildAlerter(cfg *config.Config) *alert.Multi {
	var alerters []alert.Alerter
	if cfg.Alerts.Stdout.Enabled {
		alerters = append(alerters, alert.NewStdoutAlerter())
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		alerters = append(alerters, alert.NewWebhookAlerter(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Headers))
	}
	return alert.NewMulti(alerters...)
}

// --- transform ---

func transformCmd() *cobra.Command {
	var (
		output         string
		includeIgnored bool
		requestFile    string
		save           bool
		pretty         bool
	)

	cmd := &cobra.Command{
		Use:   "transform [path...]",
		Short: "Transform Terraform AWS configuration into the canonical envelope",
		Long: `Parses the given .tf files or directories and prints the canonical
JSON envelope. Alternatively --request reads a JSON/YAML request manifest
carrying file contents inline ("-" for stdin).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := scanner.Request{
				Paths:          args,
				IncludeIgnored: includeIgnored,
				Save:           save,
			}

			if requestFile != "" {
				var (
					in  *os.File
					err error
				)
				if requestFile == "-" {
					in = os.Stdin
				} else {
					in, err = os.Open(requestFile) // #nosec G304 -- path from user CLI arg
					if err != nil {
						return fmt.Errorf("opening request manifest: %w", err)
					}
					defer in.Close() //nolint:errcheck // best-effort cleanup
				}
				manifest, err := transform.DecodeRequest(in)
				if err != nil {
					return err
				}
				req.Files = manifest.Files
				req.IncludeIgnored = req.IncludeIgnored || manifest.Options.IncludeIgnored
			}

			if len(req.Paths) == 0 && len(req.Files) == 0 {
				return fmt.Errorf("provide at least one path or --request manifest")
			}

			var (
				st  store.Store
				cfg *config.Config
			)
			if save {
				sqlStore, loaded := openStore()
				defer sqlStore.Close() //nolint:errcheck // best-effort cleanup
				st, cfg = sqlStore, loaded
			} else {
				loaded, err := config.Load(cfgFile)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			runner := scanner.New(st, cfg, logger)
			res, err := runner.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			for _, w := range res.Warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}

			out := res.Canonical
			if pretty {
				out, err = transform.MarshalIndented(res.Envelope)
				if err != nil {
					return err
				}
			}

			if output != "" {
				if err := os.WriteFile(output, append(out, '\n'), 0o600); err != nil {
					return fmt.Errorf("writing output: %w", err)
				}
				logger.Info("envelope written", "path", output, "hash", res.Hash,
					"resources", res.Resources, "data_sources", res.Data)
			} else {
				fmt.Println(string(out))
			}

			if save {
				fmt.Fprintf(os.Stderr, "saved snapshot %d (hash %s)\n", res.SnapshotID, short(res.Hash))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write envelope to file instead of stdout")
	cmd.Flags().BoolVar(&includeIgnored, "include-ignored", false, "include skipped-block diagnostics in the envelope")
	cmd.Flags().StringVar(&requestFile, "request", "", "read a JSON/YAML request manifest ('-' for stdin)")
	cmd.Flags().BoolVar(&save, "save", false, "persist the run as a snapshot")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

// --- snapshots ---

func snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect stored snapshots",
	}
	cmd.AddCommand(snapshotsListCmd(), snapshotsShowCmd())
	return cmd
}

func snapshotsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _ := openStore()
			defer st.Close() //nolint:errcheck // best-effort cleanup

			snaps, err := st.ListSnapshots(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Println("No snapshots stored. Run 'tfcanon transform --save' first.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tCREATED\tSOURCE\tRESOURCES\tDATA\tIGNORED\tHASH")
			for _, s := range snaps {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
					s.ID, s.CreatedAt.Format(time.RFC3339), s.SourcePath,
					s.Resources, s.DataSources, s.Ignored, short(s.Hash))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of snapshots to list")
	return cmd
}

func snapshotsShowCmd() *cobra.Command {
	var envelope bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid snapshot id %q", args[0])
			}

			st, _ := openStore()
			defer st.Close() //nolint:errcheck // best-effort cleanup

			snap, err := st.GetSnapshot(cmd.Context(), id)
			if err != nil {
				return err
			}
			if snap == nil {
				return fmt.Errorf("snapshot %d not found", id)
			}

			if envelope {
				fmt.Println(string(snap.Envelope))
				return nil
			}

			fmt.Printf("Snapshot %d\n", snap.ID)
			fmt.Printf("  Created:      %s\n", snap.CreatedAt.Format(time.RFC3339))
			fmt.Printf("  Source:       %s\n", snap.SourcePath)
			fmt.Printf("  Resources:    %d\n", snap.Resources)
			fmt.Printf("  Data sources: %d\n", snap.DataSources)
			fmt.Printf("  Ignored:      %d\n", snap.Ignored)
			fmt.Printf("  Hash:         %s\n", snap.Hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&envelope, "envelope", false, "print the stored canonical envelope instead of metadata")
	return cmd
}

// --- diff ---

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <from-id> <to-id>",
		Short: "Compare the records of two snapshots by address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid snapshot id %q", args[0])
			}
			to, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid snapshot id %q", args[1])
			}

			st, _ := openStore()
			defer st.Close() //nolint:errcheck // best-effort cleanup

			diff, err := st.Diff(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			fmt.Printf("Diff: snapshot %d -> %d\n\n", diff.From, diff.To)
			if len(diff.Added)+len(diff.Removed)+len(diff.Changed) == 0 {
				fmt.Println("No differences.")
				return nil
			}
			for _, a := range diff.Added {
				fmt.Printf("  + %s\n", a)
			}
			for _, r := range diff.Removed {
				fmt.Printf("  - %s\n", r)
			}
			for _, c := range diff.Changed {
				fmt.Printf("  ~ %s\n", c)
			}
			return nil
		},
	}
}

// --- impact / deps ---

func impactCmd() *cobra.Command {
	var snapshotID int64

	cmd := &cobra.Command{
		Use:   "impact <address>",
		Short: "Show everything that transitively depends on an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, engine, _ := openStoreAndEngine()
			defer st.Close()     //nolint:errcheck // best-effort cleanup
			defer engine.Close() //nolint:errcheck // best-effort cleanup

			result, err := engine.Impact(cmd.Context(), snapshotID, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\nImpact Analysis: %s (snapshot %d)\n", result.Root, result.SnapshotID)
			fmt.Printf("   Blast radius: %d affected records\n\n", len(result.Affected))

			if len(result.Affected) == 0 {
				fmt.Println("   Nothing depends on this address.")
				return nil
			}
			for _, a := range result.Affected {
				fmt.Printf("   - %s\n", a)
			}
			if len(result.AffectedByService) > 0 {
				fmt.Println("\n   By service:")
				for _, svc := range sortedKeys(result.AffectedByService) {
					fmt.Printf("   %-6s %d\n", svc, result.AffectedByService[svc])
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&snapshotID, "snapshot", 0, "snapshot to analyze (0 = latest)")
	return cmd
}

func depsCmd() *cobra.Command {
	var snapshotID int64

	cmd := &cobra.Command{
		Use:   "deps <address>",
		Short: "Show everything an address transitively depends on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, engine, _ := openStoreAndEngine()
			defer st.Close()     //nolint:errcheck // best-effort cleanup
			defer engine.Close() //nolint:errcheck // best-effort cleanup

			deps, err := engine.Deps(cmd.Context(), snapshotID, args[0])
			if err != nil {
				return err
			}

			if len(deps) == 0 {
				fmt.Printf("%s has no dependencies.\n", args[0])
				return nil
			}
			fmt.Printf("Dependencies of %s:\n", args[0])
			for _, d := range deps {
				fmt.Printf("  - %s\n", d)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&snapshotID, "snapshot", 0, "snapshot to analyze (0 = latest)")
	return cmd
}

// --- export ---

func exportCmd() *cobra.Command {
	var format string
	var snapshotID int64

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dependency graph of a snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _ := openStore()
			defer st.Close() //nolint:errcheck // best-effort cleanup
			ctx := cmd.Context()

			id := snapshotID
			if id == 0 {
				snap, err := st.LatestSnapshot(ctx, "")
				if err != nil {
					return err
				}
				if snap == nil {
					return fmt.Errorf("no snapshots stored")
				}
				id = snap.ID
			}

			records, err := st.ListRecords(ctx, id)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				out, err := graph.ExportJSON(records)
				if err != nil {
					return err
				}
				fmt.Println(out)
			case "dot":
				fmt.Print(graph.ExportDOT(records))
			default:
				return fmt.Errorf("unsupported format %q (use: json, dot)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "export format: json, dot")
	cmd.Flags().Int64Var(&snapshotID, "snapshot", 0, "snapshot to export (0 = latest)")
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var listen string
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the transform and snapshot API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, engine, cfg := openStoreAndEngine()

			if listen == "" {
				listen = cfg.Server.Listen
			}

			runner := scanner.New(st, cfg, logger)
			srv := server.New(st, engine, runner, logger, server.Options{
				Listen:     listen,
				ReadOnly:   readOnly || cfg.Server.ReadOnly,
				APIToken:   cfg.Server.APIToken,
				CORSOrigin: cfg.Server.CORSOrigin,
				RateLimit:  cfg.Server.RateLimit,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			if cfg.Scan.OnStartup && len(cfg.Sources.Terraform) > 0 {
				go func() {
					logger.Info("running startup scan")
					for _, res := range runner.RunConfigured(context.Background()) {
						logger.Info("startup scan completed", "snapshot", res.SnapshotID,
							"resources", res.Resources, "data_sources", res.Data)
						syncSnapshot(context.Background(), engine, res.SnapshotID)
					}
				}()
			}

			if cfg.Scan.Schedule != "" {
				sched, err := scanner.NewScheduler(runner, st, buildAlerter(cfg), cfg.Scan.Schedule, logger)
				if err != nil {
					logger.Error("invalid scan schedule", "error", err)
				} else {
					sched.Start(ctx)
					defer sched.Stop()
				}
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
				_ = engine.Close()
				_ = st.Close()
			}()

			return srv.Start()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config or :8080)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "disable scan triggers via API")
	return cmd
}

// syncSnapshot pushes a snapshot into Memgraph when that engine is active.
func syncSnapshot(ctx context.Context, engine graph.Engine, snapshotID int64) {
	mg, ok := engine.(*graph.MemgraphEngine)
	if !ok {
		return
	}
	if err := mg.Sync(ctx, snapshotID); err != nil {
		logger.Warn("memgraph sync failed", "snapshot", snapshotID, "error", err)
	}
}

// --- db ---

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management",
	}
	cmd.AddCommand(dbStatsCmd(), dbResetCmd(), dbSyncCmd())
	return cmd
}

func dbStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, cfg := openStore()
			defer st.Close() //nolint:errcheck // best-effort cleanup

			path := cfg.Storage.Path
			if dbPath != "" {
				path = dbPath
			}

			info, err := os.Stat(path)
			sizeStr := "unknown"
			if err == nil {
				sizeStr = formatBytes(info.Size())
			}

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Database: %s (%s)\n\n", path, sizeStr)
			fmt.Printf("Snapshots: %d\n", stats.Snapshots)
			fmt.Printf("Records:   %d\n", stats.Records)
			return nil
		},
	}
}

func dbResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all snapshots and records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _ := openStore()
			defer st.Close() //nolint:errcheck // best-effort cleanup

			if !force {
				fmt.Print("Delete all snapshots and records? [y/N]: ")
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" && answer != "yes" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			if err := st.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Database reset.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")
	return cmd
}

func dbSyncCmd() *cobra.Command {
	var snapshotID int64

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize a snapshot's dependency graph to Memgraph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, cfg := openStore()
			defer st.Close() //nolint:errcheck // best-effort cleanup

			if !cfg.Storage.Memgraph.Enabled {
				return fmt.Errorf("memgraph is not enabled in configuration (set storage.memgraph.enabled: true)")
			}

			engine, err := graph.NewMemgraphEngine(
				cfg.Storage.Memgraph.URI,
				cfg.Storage.Memgraph.Username,
				cfg.Storage.Memgraph.Password,
				graph.NewLocalEngine(st),
				logger,
			)
			if err != nil {
				return err
			}
			defer engine.Close() //nolint:errcheck // best-effort cleanup

			return engine.Sync(cmd.Context(), snapshotID)
		},
	}

	cmd.Flags().Int64Var(&snapshotID, "snapshot", 0, "snapshot to sync (0 = latest)")
	return cmd
}

// --- helpers ---

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- version ---

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("tfcanon %s\n", version)
		},
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid --log-level %q (use: debug, info, warn, error)", s)
	}
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tfcanon.

To load completions:

Bash:
  $ source <(tfcanon completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ tfcanon completion bash > /etc/bash_completion.d/tfcanon
  # macOS:
  $ tfcanon completion bash > $(brew --prefix)/etc/bash_completion.d/tfcanon

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ tfcanon completion zsh > "${fpath[1]}/_tfcanon"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ tfcanon completion fish | source
  # To load completions for each session, execute once:
  $ tfcanon completion fish > ~/.config/fish/completions/tfcanon.fish

PowerShell:
  PS> tfcanon completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, add the output to your profile:
  PS> tfcanon completion powershell >> $PROFILE
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
