package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var CleanCmd = cobra.Command{
	Use:   "clean",
	Short: "Remove the on-disk checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := chk.Clear(); err != nil {
			return err
		}
		fmt.Println("cache cleared")
		return nil
	},
}
