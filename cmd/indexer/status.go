package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var StatusCmd = cobra.Command{
	Use:   "status",
	Short: "Show the current checkpoint's entry count and on-disk size",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !chk.Exists() {
			fmt.Println("cache: empty")
			return nil
		}

		if err := chk.Load(); err != nil {
			return err
		}

		entries, sizeBytes, err := chk.Stats()
		if err != nil {
			return err
		}

		meta := chk.Metadata()
		fmt.Printf("cache: %d entries (%s)\n", entries, formatBytes(sizeBytes))
		fmt.Printf(" - created:       %s\n", meta.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf(" - last modified: %s\n", meta.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Printf(" - total docs:    %d\n", meta.TotalDocs)
		fmt.Printf(" - reindex all:   %t\n", meta.ReindexAll)
		return nil
	},
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
