package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/entpool/internal/persist"
)

func (a *app) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Store and fetch save files in the Postgres archive",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "put NAME FILE",
			Short: "Archive a save file under NAME",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[1])
				if err != nil {
					return err
				}
				return a.withArchive(cmd.Context(), func(ctx context.Context, repo *persist.SaveRepo) error {
					info, err := repo.Put(ctx, args[0], data)
					if err != nil {
						return err
					}
					printOK(cmd.OutOrStdout(), fmt.Sprintf("%s: %d chunks, %d bytes, %s",
						info.Name, info.Chunks, info.Size, shortDigest(info.Digest)))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get NAME FILE",
			Short: "Fetch an archived save, checking its digests",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withArchive(cmd.Context(), func(ctx context.Context, repo *persist.SaveRepo) error {
					data, err := repo.Get(ctx, args[0])
					if err != nil {
						return err
					}
					return os.WriteFile(args[1], data, 0o644)
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List archived saves",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withArchive(cmd.Context(), func(ctx context.Context, repo *persist.SaveRepo) error {
					saves, err := repo.List(ctx)
					if err != nil {
						return err
					}
					w := cmd.OutOrStdout()
					for _, s := range saves {
						fmt.Fprintf(w, "%-24s %3d %9d %s %s\n", s.Name, s.Chunks, s.Size,
							shortDigest(s.Digest), s.CreatedAt.Format(time.DateTime))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm NAME",
			Short: "Delete an archived save",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withArchive(cmd.Context(), func(ctx context.Context, repo *persist.SaveRepo) error {
					ok, err := repo.Delete(ctx, args[0])
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("%s: %w", args[0], persist.ErrNotFound)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

// withArchive connects, migrates and runs fn under one deadline.
func (a *app) withArchive(parent context.Context, fn func(context.Context, *persist.SaveRepo) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, a.cfg.Archive, a.log)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer db.Close()

	version, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	a.log.Debug("存檔庫遷移完成", zap.Int64("version", version))
	return fn(ctx, persist.NewSaveRepo(db))
}
