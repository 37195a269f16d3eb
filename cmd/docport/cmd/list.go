/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/docport/pkg/storage"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *storage.Store) error {
			return runList(s, cmd.OutOrStdout())
		})
	},
}

func runList(s *storage.Store, out io.Writer) error {
	infos, err := s.Collections()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		_, err := fmt.Fprintln(out, "No collections")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tDOCUMENTS\tREVISION")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Name, info.Count, info.Revision)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(listCmd)
}
