package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/structchat/structchat/schema"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Inspect the schema registry",
}

var schemasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := schema.LoadDir(cfg.Schemas.Dir)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tBYTES")
		for _, name := range registry.Names() {
			s, _ := registry.Get(name)
			fmt.Fprintf(w, "%s\t%d\n", name, len(s.Raw()))
		}
		return w.Flush()
	},
}

var schemasShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a registered schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := schema.LoadDir(cfg.Schemas.Dir)
		if err != nil {
			return err
		}
		s, ok := registry.Get(args[0])
		if !ok {
			return fmt.Errorf("schema %q not registered", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(s.Raw()))
		return nil
	},
}

func init() {
	schemasCmd.AddCommand(schemasListCmd, schemasShowCmd)
}
