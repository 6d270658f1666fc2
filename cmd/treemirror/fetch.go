package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/treemirror/treemirror/internal/cache"
	"github.com/treemirror/treemirror/internal/config"
	"github.com/treemirror/treemirror/internal/store"
	"github.com/treemirror/treemirror/internal/transport"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <path>...",
	Short: "Pull the latest snapshot and fetch specific files into the mirror",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = viper.GetString("mirror_dir")
		}
		if dir == "" {
			dir = "."
		}
		origin, _ := cmd.Flags().GetString("origin")
		if origin == "" {
			origin = viper.GetString("origin")
		}
		if origin == "" {
			return errors.New("an origin URL is required (--origin)")
		}
		if err := config.ValidateOrigin(origin); err != nil {
			return err
		}

		local, err := store.NewLocal(dir)
		if err != nil {
			return err
		}
		c := cache.New(local, transport.New(origin))

		cmd.SilenceUsage = true
		if err := c.Update(cmd.Context()); err != nil {
			return err
		}

		for _, path := range args {
			if err := c.Get(cmd.Context(), path, false); err != nil {
				return err
			}
			info, err := c.Stat(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", path, humanize.Bytes(uint64(info.Size())))
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringP("origin", "o", "", "origin base URL")
	fetchCmd.Flags().String("dir", "", "mirror directory")
}
