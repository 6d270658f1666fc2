package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/treemirror/treemirror/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if _, err := config.Load(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		origin, _ := cmd.Flags().GetString("origin")
		if origin != "" {
			if err := config.ValidateOrigin(origin); err != nil {
				return err
			}
		}
		treeDir, _ := cmd.Flags().GetString("tree-dir")
		mirrorDir, _ := cmd.Flags().GetString("mirror-dir")

		cfg := &config.Config{
			TreeDir:        treeDir,
			MirrorDir:      mirrorDir,
			Origin:         origin,
			ScanInterval:   config.Duration(30 * time.Second),
			UpdateInterval: config.Duration(30 * time.Second),
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
		return nil
	},
}

func init() {
	initCmd.Flags().StringP("origin", "o", "", "origin base URL")
	initCmd.Flags().String("tree-dir", "", "producer tree directory")
	initCmd.Flags().String("mirror-dir", "", "mirror directory")
}
