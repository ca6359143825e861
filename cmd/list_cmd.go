package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kebairia/pgverify/internal/catalog"
	"github.com/kebairia/pgverify/internal/operations"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all backups in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := operations.NewManager(ConfigFile)
		if err != nil {
			return err
		}

		backups, err := manager.List("")
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODE\tTLI\tSTART\tSTOP LSN\tSTATUS")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
				catalog.EncodeID(b.ID()),
				b.Mode,
				b.TLI,
				b.StartTime.Format("2006-01-02 15:04:05"),
				b.StopLSN,
				b.Status,
			)
		}
		return w.Flush()
	},
}
