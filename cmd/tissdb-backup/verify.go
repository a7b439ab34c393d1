package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Open every database and report collection/document counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		// openManager itself exercises the full recovery path (WAL replay,
		// SSTable reopen, index load) that a live server runs at startup; a
		// successful return here already means every collection's on-disk
		// state parsed cleanly.
		mgr, log, err := openManager()
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		defer mgr.Shutdown()

		for _, dbName := range mgr.ListDatabases() {
			tree, err := mgr.GetDatabase(dbName)
			if err != nil {
				return err
			}
			for _, coll := range tree.ListCollections() {
				docs, err := tree.Scan(coll)
				if err != nil {
					return fmt.Errorf("scanning %s/%s: %w", dbName, coll, err)
				}
				log.Info().Str("database", dbName).Str("collection", coll).Int("documents", len(docs)).Msg("verified")
			}
		}
		fmt.Println("OK")
		return nil
	},
}
