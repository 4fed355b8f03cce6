package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smoreland/sleuth/pkg/coretools"
	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := toolexecutor.NewRegistry()
		if err := coretools.Register(registry, coretools.Options{}); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tAPPROVAL\tDESCRIPTION")
		for _, def := range registry.Definitions() {
			approval := "-"
			if def.RequiresApproval {
				approval = "required"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, approval, def.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
