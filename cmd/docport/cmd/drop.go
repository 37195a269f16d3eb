/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/docport/pkg/storage"
)

// dropCmd represents the drop command
var dropCmd = &cobra.Command{
	Use:   "drop <collection>",
	Short: "Remove a collection and all of its documents",
	Long: `Remove a collection and all of its documents from the store.

Example:
  docport drop users`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *storage.Store) error {
			if err := s.Drop(args[0]); err != nil {
				return err
			}
			cmd.Printf("Dropped %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dropCmd)
}
