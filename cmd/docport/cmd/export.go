/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	"github.com/ssargent/docport/pkg/archive"
	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/storage"
)

var exportFormat codec.Format

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [collection...]",
	Short: "Export collections to a zip archive",
	Long: `Export stored collections into a single zip archive holding one
<collection>.<format> entry per collection. Every collection is exported when
none are named.

Formats:
` + indent(codec.FormatHelp()) + `

Examples:
  docport export -o backup.zip
  docport export users orders --format csv -o users.zip
  docport export --format bson -o - > backup.zip`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		format := exportFormat
		if format == "" {
			format = codec.Format(appConfig.Transfer.DefaultFormat)
		}

		return withStore(func(s *storage.Store) error {
			var w io.Writer = cmd.OutOrStdout()
			if output != "-" {
				f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			summary, err := runExport(cmd.Context(), s, container.Exporter(), format, args, w)
			if err != nil {
				return err
			}
			if output != "-" {
				cmd.Printf("Exported %d collections (%d documents) to %s\nblake3: %s\n",
					summary.collections, summary.documents, output, summary.digest)
			}
			return nil
		})
	},
}

type exportSummary struct {
	collections int
	documents   int
	bytes       int
	digest      string
}

func runExport(ctx context.Context, s *storage.Store, exp *archive.Exporter, format codec.Format, names []string, w io.Writer) (exportSummary, error) {
	set, err := s.LoadSet(names...)
	if err != nil {
		return exportSummary{}, err
	}
	data, err := exp.Export(ctx, set, format)
	if err != nil {
		return exportSummary{}, err
	}
	if _, err := w.Write(data); err != nil {
		return exportSummary{}, fmt.Errorf("failed to write archive: %w", err)
	}
	digest := blake3.Sum256(data)
	return exportSummary{
		collections: len(set),
		documents:   set.Count(),
		bytes:       len(data),
		digest:      hex.EncodeToString(digest[:]),
	}, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	formatFlag(exportCmd.Flags(), &exportFormat, "Entry format: json, csv or bson (default from config). "+codec.FormatBSON.Describe())
	exportCmd.Flags().StringP("output", "o", "export.zip", "Output file, - for stdout")
}
