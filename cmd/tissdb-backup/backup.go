package main

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
)

var backupOutput string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Flush, compact, and archive every database root into a single file",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, log, err := openManager()
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		for _, dbName := range mgr.ListDatabases() {
			tree, err := mgr.GetDatabase(dbName)
			if err != nil {
				return err
			}
			for _, coll := range tree.ListCollections() {
				log.Info().Str("database", dbName).Str("collection", coll).Msg("flushing before backup")
				if err := tree.Flush(coll); err != nil {
					return fmt.Errorf("flush %s/%s: %w", dbName, coll, err)
				}
				if err := tree.Compact(coll); err != nil {
					return fmt.Errorf("compact %s/%s: %w", dbName, coll, err)
				}
			}
		}

		if backupOutput == "" {
			return fmt.Errorf("--output is required")
		}
		if err := archiveDataDir(mgr.BasePath(), backupOutput); err != nil {
			return err
		}
		log.Info().Str("output", backupOutput).Msg("backup archive written")
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupOutput, "output", "", "path to the archive file to create")
}

// archiveDataDir walks root and writes every regular file into a
// zstd-compressed tar archive at destPath (the on-disk layout: per-database
// txn_wal.log, per-collection wal.log/sstable_*.db files and any
// indexes.meta/*.bpt index dumps — all plain files under root, so a tar walk
// captures the entire on-disk state faithfully).
func archiveDataDir(root, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return err
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}
