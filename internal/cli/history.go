package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/stockpile/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// HistoryResult lists one storage's revisions.
type HistoryResult struct {
	StorageID string               `json:"storage_id"`
	Revisions []store.RevisionInfo `json:"revisions"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [storage-id]",
		Short: "List saved storages or revisions",
		Long: `List what a snapshot database holds.

Without arguments, every saved storage is listed with its layout and
revision count. With a storage id, that storage's revisions are listed
oldest first.

Examples:
  stockpile history --db ./stockpile.db
  stockpile history --db ./stockpile.db 0190a3c4-... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListStorages(opts, cmd)
			}
			return runRevisions(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runListStorages(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	db, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	infos, err := db.Storages(context.Background())
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list storages", err)
	}

	if formatter.IsJSON() {
		if infos == nil {
			infos = []store.StorageInfo{}
		}
		return formatter.Success(infos)
	}

	w := formatter.Writer
	if len(infos) == 0 {
		fmt.Fprintln(w, "No storages saved.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%s  %-12s %3d slot(s)  %d revision(s)\n", info.ID, info.Layout, info.Slots, info.Revisions)
	}
	return nil
}

func runRevisions(opts *HistoryOptions, rawID string, cmd *cobra.Command) error {
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

	revisions, err := db.Revisions(context.Background(), id)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list revisions", err)
	}
	if len(revisions) == 0 {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("storage %s not found", id), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("storage %s not found", id))
	}

	if formatter.IsJSON() {
		return formatter.Success(HistoryResult{StorageID: id.String(), Revisions: revisions})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Storage %s\n\n", id)
	for _, r := range revisions {
		fmt.Fprintf(w, "  revision %d: version %d, %d occupied\n", r.Revision, r.Version, r.Occupied)
	}
	return nil
}
