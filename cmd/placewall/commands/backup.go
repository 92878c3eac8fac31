package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/brinehollow/placewall/internal/config"
	"github.com/brinehollow/placewall/internal/logging"
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/store"
)

var backupDest string

// BackupCmd takes a one-off online backup of the sqlite database without
// starting the server, useful for cron-driven off-host backups alongside
// the in-process SIGUSR1 worker.
var BackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Take an online backup of the sqlite database",
	RunE:  runBackup,
}

func init() {
	BackupCmd.Flags().StringVarP(&backupDest, "out", "o", "", "destination path for the backup file (required)")
	_ = BackupCmd.MarkFlagRequired("out")
}

func runBackup(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(false, zapcore.WarnLevel); err != nil {
		return plerrors.Wrap(err, "initializing logger")
	}
	defer logging.Sync()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, _, err := config.Load(configFile)
	if err != nil {
		return plerrors.Wrap(err, "loading configuration")
	}

	st, err := store.Open(cfg.DBaseFile)
	if err != nil {
		return plerrors.Wrap(err, "opening database")
	}
	defer st.Close()

	if err := st.BackupTo(context.Background(), backupDest); err != nil {
		return err
	}
	fmt.Printf("backup written to %s\n", backupDest)
	return nil
}
