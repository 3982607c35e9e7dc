package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/structchat/structchat/chat"
	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/ZanzyTHEbar/structchat/structchat/schema"
)

var (
	askSystem      []string
	askUser        []string
	askSchemas     []string
	askLabel       string
	askIndex       int
	askMedia       string
	askMediaFormat string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask one question and print the validated JSON answer",
	Long: `Send a system and user prompt to the configured model and print the
validated answer. With exactly one --schema the single value is printed,
otherwise the list of every extracted block.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(askUser) == 0 {
			return fmt.Errorf("at least one --user line is required")
		}

		registry, err := schema.LoadDir(cfg.Schemas.Dir)
		if err != nil {
			return err
		}
		schemas, err := registry.Set(askSchemas...)
		if err != nil {
			return err
		}

		var reg prometheus.Registerer
		if cfg.Metrics.Enabled {
			reg = prometheus.DefaultRegisterer
		}

		ctx := cmd.Context()
		components, err := chat.NewFactory(cfg, logger).Build(ctx, nil, reg)
		if err != nil {
			return err
		}
		defer components.Close()

		engine := components.NewEngine()
		if askMedia != "" {
			data, err := os.ReadFile(askMedia)
			if err != nil {
				return fmt.Errorf("failed to read media: %w", err)
			}
			format := askMediaFormat
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(askMedia), ".")
			}
			engine.Conversation().AttachMedia(data, format)
		}

		var instr *ports.Instruction
		if askLabel != "" {
			instr = &ports.Instruction{Label: askLabel, Index: askIndex}
		}

		value, err := engine.SingleQuery(ctx, askSystem, askUser, schemas, instr)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode answer: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	askCmd.Flags().StringArrayVar(&askSystem, "system", nil, "System prompt line (repeatable)")
	askCmd.Flags().StringArrayVar(&askUser, "user", nil, "User prompt line (repeatable)")
	askCmd.Flags().StringSliceVarP(&askSchemas, "schema", "s", nil, "Registered schema names, in answer order")
	askCmd.Flags().StringVar(&askLabel, "label", "", "Audit label (default: engine.default_label)")
	askCmd.Flags().IntVar(&askIndex, "index", -1, "Audit sequence index")
	askCmd.Flags().StringVar(&askMedia, "media", "", "Audio file to send with the user prompt")
	askCmd.Flags().StringVar(&askMediaFormat, "media-format", "", "Media format tag (default: file extension)")
}
