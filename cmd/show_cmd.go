package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kebairia/pgverify/internal/operations"
)

var showCmd = &cobra.Command{
	Use:   "show <backup-id>",
	Short: "Show one backup's full metadata record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := operations.NewManager(ConfigFile)
		if err != nil {
			return err
		}

		b, err := manager.Show(args[0])
		if err != nil {
			return err
		}

		// the record's own serialization is its display form
		_, err = os.Stdout.Write(b.Marshal())
		return err
	},
}
