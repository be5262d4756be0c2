package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stockpile/internal/harness"
	"github.com/roach88/stockpile/internal/storage"
	"github.com/roach88/stockpile/internal/store"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	Database string
	Scenario string // optional - persist the storages of a scenario run
}

// SnapshotEntry describes one saved revision.
type SnapshotEntry struct {
	Name      string `json:"name"`
	StorageID string `json:"storage_id"`
	Layout    string `json:"layout"`
	Revision  int64  `json:"revision"`
	Version   uint64 `json:"version"`
	Occupied  int    `json:"occupied"`
}

// SnapshotResult holds every revision written by one invocation.
type SnapshotResult struct {
	Database  string          `json:"database"`
	Snapshots []SnapshotEntry `json:"snapshots"`
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot <layouts-dir> [layout]",
		Short: "Persist storages to a snapshot database",
		Long: `Save storage state to a SQLite snapshot database.

With a layout name, an empty storage of that layout is built and saved.
With --scenario, the scenario is run and every storage it declares is
saved after the flow completes. The scenario must pass.

Examples:
  stockpile snapshot --db ./stockpile.db ./layouts chest
  stockpile snapshot --db ./stockpile.db ./layouts --scenario ./scenarios/smelt_batch.yaml`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			layoutName := ""
			if len(args) == 2 {
				layoutName = args[1]
			}
			return runSnapshot(cmd.Context(), opts, args[0], layoutName, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario file to run before saving")

	return cmd
}

// namedStorage pairs a storage with the name and layout it is saved under.
type namedStorage struct {
	name    string
	layout  string
	storage *storage.Storage
}

func runSnapshot(ctx context.Context, opts *SnapshotOptions, layoutsDir, layoutName string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if (layoutName == "") == (opts.Scenario == "") {
		return NewExitError(ExitCommandError, "exactly one of a layout name or --scenario is required")
	}

	loadResult, loadErrors := LoadCatalog(layoutsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		_ = formatter.Error(code, message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}
	catalog := loadResult.Catalog

	var targets []namedStorage
	if layoutName != "" {
		s, err := catalog.Build(layoutName)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to build storage", err)
		}
		targets = append(targets, namedStorage{name: layoutName, layout: layoutName, storage: s})
	} else {
		scenario, err := harness.LoadScenario(opts.Scenario)
		if err != nil {
			_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load scenario", err)
		}

		h := harness.New(catalog, scenario,
			harness.WithIDGenerator(storage.UUIDv7Generator{}),
			harness.WithLogger(slog.Default().With("scenario", scenario.Name)))
		result, err := h.Execute()
		if err != nil {
			_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to run scenario", err)
		}
		if !result.Pass {
			_ = formatter.Error(ErrCodeScenario, "scenario failed; nothing saved", result.Errors)
			return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed: %s", scenario.Name, strings.Join(result.Errors, "; ")))
		}

		for _, name := range h.StorageNames() {
			s, _ := h.Storage(name)
			targets = append(targets, namedStorage{name: name, layout: h.Layout(name), storage: s})
		}
	}

	db, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	result := SnapshotResult{Database: opts.Database}
	for _, target := range targets {
		snap, err := db.Save(ctx, target.layout, target.storage)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to save storage", err)
		}
		formatter.VerboseLog("Saved %s as %s revision %d", target.name, snap.StorageID, snap.Revision)
		result.Snapshots = append(result.Snapshots, SnapshotEntry{
			Name:      target.name,
			StorageID: snap.StorageID.String(),
			Layout:    snap.Layout,
			Revision:  snap.Revision,
			Version:   snap.Version,
			Occupied:  occupied(snap.Records),
		})
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Saved %d storage(s) to %s\n", len(result.Snapshots), opts.Database)
	for _, e := range result.Snapshots {
		fmt.Fprintf(w, "  %s: %s (layout %s, revision %d, version %d, %d occupied)\n",
			e.Name, e.StorageID, e.Layout, e.Revision, e.Version, e.Occupied)
	}
	return nil
}

func occupied(records []storage.SlotRecord) int {
	n := 0
	for _, rec := range records {
		if !rec.IsEmpty() {
			n++
		}
	}
	return n
}
