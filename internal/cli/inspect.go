package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database  string
	Revision  int64  // optional - exact revision
	AtVersion uint64 // optional - latest revision at or before a storage version
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <storage-id>",
		Short: "Show the slots of a saved storage",
		Long: `Show the slot contents of a storage saved in a snapshot database.

By default the latest revision is shown. --revision selects an exact
revision and --at-version the newest revision saved at or before a
storage version.

Examples:
  stockpile inspect --db ./stockpile.db 0190a3c4-...
  stockpile inspect --db ./stockpile.db 0190a3c4-... --revision 2
  stockpile inspect --db ./stockpile.db 0190a3c4-... --at-version 5 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.Revision, "revision", 0, "revision number to show")
	cmd.Flags().Uint64Var(&opts.AtVersion, "at-version", 0, "show the newest revision at or before this storage version")
	cmd.MarkFlagsMutuallyExclusive("revision", "at-version")

	return cmd
}

func runInspect(opts *InspectOptions, rawID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	id, err := uuid.Parse(rawID)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid storage id %q", rawID), err)
	}

	db, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var snap store.Snapshot
	switch {
	case cmd.Flags().Changed("revision"):
		snap, err = db.Revision(ctx, id, opts.Revision)
	case cmd.Flags().Changed("at-version"):
		snap, err = db.AtVersion(ctx, id, opts.AtVersion)
	default:
		snap, err = db.Latest(ctx, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no matching revision", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read storage", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(snap)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Storage %s (layout %s)\n", snap.StorageID, snap.Layout)
	fmt.Fprintf(w, "Revision %d, version %d\n\n", snap.Revision, snap.Version)

	for i, rec := range snap.Records {
		if rec.IsEmpty() {
			if opts.Verbose {
				fmt.Fprintf(w, "  [%d] empty\n", i)
			}
			continue
		}
		line := fmt.Sprintf("  [%d] %d %s", i, rec.Amount, rec.TypeID)
		if !rec.Metadata.IsEmpty() {
			meta, err := resource.MarshalCanonical(rec.Metadata)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render metadata", err)
			}
			line += " " + string(meta)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\n%d of %d slot(s) occupied\n", occupied(snap.Records), len(snap.Records))
	return nil
}

// openExisting opens a snapshot database that must already exist.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return db, nil
}
