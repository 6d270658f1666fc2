package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/treemirror/treemirror/internal/tree"
)

var trackCmd = &cobra.Command{
	Use:   "track [dir]",
	Short: "Record file additions and removals in a tree's change log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("tree_dir")
		if len(args) > 0 {
			dir = args[0]
		}
		if dir == "" {
			dir = "."
		}

		producer, err := tree.NewProducer(dir,
			viper.GetDuration("scan_interval"),
			viper.GetStringSlice("ignore")...,
		)
		if err != nil {
			return err
		}
		defer producer.Stop()

		cmd.SilenceUsage = true
		if err := producer.Start(cmd.Context()); err != nil {
			return err
		}
		producer.Wait()
		return nil
	},
}

func init() {
	trackCmd.Flags().Duration("scan-interval", 30*time.Second, "full rescan interval")
	viper.BindPFlag("scan_interval", trackCmd.Flags().Lookup("scan-interval"))
}
