package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/treemirror/treemirror/internal/config"
	"github.com/treemirror/treemirror/internal/mirror"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror [dir]",
	Short: "Maintain a lazy local mirror of an origin tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("mirror_dir")
		if len(args) > 0 {
			dir = args[0]
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

		interval, _ := cmd.Flags().GetDuration("update-interval")
		if !cmd.Flags().Changed("update-interval") && viper.IsSet("update_interval") {
			interval = viper.GetDuration("update_interval")
		}

		m, err := mirror.New(dir, origin, interval)
		if err != nil {
			return err
		}

		cmd.SilenceUsage = true
		if err := m.Start(cmd.Context()); err != nil {
			return err
		}
		m.Wait()
		return nil
	},
}

func init() {
	mirrorCmd.Flags().StringP("origin", "o", "", "origin base URL")
	mirrorCmd.Flags().Duration("update-interval", 30*time.Second, "snapshot refresh interval")
}
