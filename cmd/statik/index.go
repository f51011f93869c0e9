package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	staterr "statik/internal/errors"
	"statik/internal/index"
	"statik/internal/model"
	"statik/internal/output"
	"statik/internal/storage"
)

var indexSnapshot string

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index the project (create/update .statik/index.db)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := os.Getwd()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			root, err = filepath.Abs(args[0])
			if err != nil {
				return err
			}
		}

		opts, err := resolveGlobals(root)
		if err != nil {
			return err
		}
		logger := newLogger()

		db, err := storage.Open(root, logger)
		if err != nil {
			return staterr.New(staterr.PersistenceIO, "failed to open index store", err)
		}
		defer db.Close()

		lock, err := index.AcquireLock(filepath.Join(root, storage.StoreDirName))
		if err != nil {
			return err
		}
		defer lock.Release()

		var langs []model.Language
		if opts.Language != "" {
			langs = []model.Language{opts.Language}
		}
		stats, err := index.New(db, root, logger).Run(cmd.Context(), index.Options{
			Include:   opts.Include,
			Exclude:   opts.Exclude,
			Languages: langs,
		})
		if err != nil {
			return err
		}

		if indexSnapshot != "" {
			if err := storage.WriteSnapshot(db, indexSnapshot); err != nil {
				return staterr.New(staterr.PersistenceIO, "failed to write snapshot", err)
			}
			logger.Info("Snapshot written", map[string]interface{}{"path": indexSnapshot})
		}

		return output.Emit(os.Stdout, opts.Format, output.Doc{
			Value: stats,
			Text: func(w io.Writer) error {
				output.Line(w, "Indexed %d files (%d unchanged, %d removed, %d partial, %d failed)",
					stats.FilesIndexed, stats.FilesSkipped, stats.FilesRemoved, stats.FilesPartial, stats.FilesFailed)
				return nil
			},
		})
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexSnapshot, "snapshot", "", "Write a zstd-compressed snapshot of the index to this path")
	rootCmd.AddCommand(indexCmd)
}
