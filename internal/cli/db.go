package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/testbench/internal/database"
	"github.com/wesleyorama2/testbench/internal/logger"
	"github.com/wesleyorama2/testbench/internal/output"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database helpers",
}

var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Connect to the configured database and report its version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := manager(cmd).Database()
		log := logger.FromContext(cmd.Context())
		log.Debug("Connecting to database", "type", cfg.Type, "host", cfg.Host, "database", cfg.Database)

		db, err := database.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		rtt, err := db.Ping(cmd.Context(), 0)
		if err != nil {
			return err
		}
		version, err := db.ServerVersion(cmd.Context())
		if err != nil {
			log.Warn("Could not read server version", "error", err)
			version = "unknown"
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s reachable in %dms (version %s)\n",
			output.SuccessIcon(noColorFlag(cmd)), db.Type, rtt.Milliseconds(), version)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbPingCmd)
}
