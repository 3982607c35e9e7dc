package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/structchat/structchat/chat"
)

var (
	historyLabel  string
	historyIndex  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored exchanges for a label and index",
	RunE: func(cmd *cobra.Command, args []string) error {
		label := historyLabel
		if label == "" {
			label = cfg.Engine.DefaultLabel
		}

		ctx := cmd.Context()
		store, closeStore, err := chat.NewFactory(cfg, logger).CreateTurnStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		records, err := store.Load(ctx, label, historyIndex)
		if err != nil {
			return err
		}

		var out []byte
		switch historyFormat {
		case "json":
			out, err = json.MarshalIndent(records, "", "  ")
		case "yaml":
			out, err = yaml.Marshal(records)
		default:
			return fmt.Errorf("unknown format %q (use json or yaml)", historyFormat)
		}
		if err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyLabel, "label", "", "Audit label (default: engine.default_label)")
	historyCmd.Flags().IntVar(&historyIndex, "index", -1, "Audit sequence index")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "json", "Output format: json or yaml")
}
