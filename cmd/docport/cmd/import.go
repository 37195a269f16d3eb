/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/docport/pkg/archive"
	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/storage"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a zip archive or a single collection file",
	Long: `Import collections from a zip archive, or a single json, csv or bson
file whose base name becomes the collection name.

Formats:
` + indent(codec.FormatHelp()) + `

Examples:
  docport import backup.zip
  docport import users.csv --drop
  docport import /tmp/upload-123 --as orders.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		drop, _ := cmd.Flags().GetBool("drop")
		filename, _ := cmd.Flags().GetString("as")
		if filename == "" {
			filename = filepath.Base(args[0])
		}

		return withStore(func(s *storage.Store) error {
			infos, err := runImport(cmd.Context(), s, container.FileImporter(), args[0], filename, drop)
			if err != nil {
				return err
			}
			for _, info := range infos {
				cmd.Printf("Imported %s: %d documents\n", info.Name, info.Count)
			}
			return nil
		})
	},
}

func runImport(ctx context.Context, s *storage.Store, fi *archive.FileImporter, path, filename string, drop bool) ([]storage.Info, error) {
	set, err := fi.ImportFile(ctx, path, filename)
	if err != nil {
		return nil, err
	}

	infos, err := s.InsertSet(set, drop)
	if err != nil {
		return nil, fmt.Errorf("failed to store import: %w", err)
	}
	// Report what this import wrote, not the collection totals.
	for i := range infos {
		infos[i].Count = len(set[infos[i].Name])
	}
	return infos, nil
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Bool("drop", false, "Replace collections that already exist")
	importCmd.Flags().String("as", "", "File name that decides the format and collection name")
}
