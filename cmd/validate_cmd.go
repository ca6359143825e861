package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kebairia/pgverify/internal/catalog"
	"github.com/kebairia/pgverify/internal/operations"
)

var (
	validateBackupID  string
	validateTime      string
	validateXID       string
	validateInclusive bool
	validateTLI       uint32
	validateSizeOnly  bool
	validateWorkers   int
	validateAll       bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a backup and its restore chain",
	Long: `validate resolves the restore chain for the requested backup (or the
latest one) and verifies every member's files against their recorded size
and checksum. With --all it sweeps the whole catalog instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := operations.NewManager(ConfigFile)
		if err != nil {
			return err
		}

		if validateAll {
			return manager.ValidateAll(cmd.Context())
		}

		chain, err := manager.Validate(cmd.Context(), operations.ValidateRequest{
			BackupID:   validateBackupID,
			TargetTime: validateTime,
			TargetXID:  validateXID,
			Inclusive:  validateInclusive,
			TargetTLI:  validateTLI,
			SizeOnly:   validateSizeOnly,
			Workers:    validateWorkers,
		})
		if err != nil {
			return err
		}

		for _, b := range chain.Backups {
			fmt.Printf("%s\t%s\t%s\n", catalog.EncodeID(b.ID()), b.Mode, b.Status)
		}
		return nil
	},
}

func init() {
	flags := validateCmd.Flags()
	flags.StringVarP(&validateBackupID, "backup-id", "i", "latest",
		"backup to validate (base-36 ID or \"latest\")")
	flags.StringVar(&validateTime, "time", "", "recovery target time (\"2006-01-02 15:04:05\")")
	flags.StringVar(&validateXID, "xid", "", "recovery target transaction ID")
	flags.BoolVar(&validateInclusive, "inclusive", true, "recovery target is inclusive")
	flags.Uint32Var(&validateTLI, "timeline", 0, "target timeline (0 = newest)")
	flags.BoolVar(&validateSizeOnly, "size-only", false, "compare file sizes only, skip checksums")
	flags.IntVarP(&validateWorkers, "jobs", "j", 0, "validation worker count (0 = configured value)")
	flags.BoolVar(&validateAll, "all", false, "sweep the whole catalog instead of one chain")
}
