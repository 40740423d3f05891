package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inery/inery/config"
	"github.com/inery/inery/libs/log"
	tmos "github.com/inery/inery/libs/os"
	"github.com/inery/inery/privval"
	"github.com/inery/inery/types"
)

// MakeInitCommand creates the command that writes the master key and a
// genesis file whose initial schedule is that key alone.
func MakeInitCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var masterName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the master key and genesis file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := types.NewAccountName(masterName)
			if err != nil {
				return err
			}
			return initFilesWithConfig(conf, name, logger)
		},
	}
	cmd.Flags().StringVar(&masterName, "master", types.DefaultInitialMaster.String(),
		"name of the initial master")
	return cmd
}

func initFilesWithConfig(conf *config.Config, name types.AccountName, logger log.Logger) error {
	keyFile := conf.MasterKeyFile()
	stateFile := conf.MasterStateFile()

	found := tmos.FileExists(keyFile)
	fm, err := privval.LoadOrGenFileMaster(name, keyFile, stateFile)
	if err != nil {
		return err
	}
	if found {
		logger.Info("found master key", "keyFile", keyFile, "stateFile", stateFile)
	} else {
		logger.Info("generated master key", "keyFile", keyFile, "stateFile", stateFile)
	}

	genFile := conf.GenesisFile()
	if tmos.FileExists(genFile) {
		logger.Info("found genesis file", "path", genFile)
		return nil
	}

	ts, err := types.NewBlockTimestamp(time.Now())
	if err != nil {
		return err
	}
	genDoc := types.GenesisDoc{
		InitialTimestamp: ts,
		InitialKey:       fm.Key.PubKey,
		InitialMaster:    fm.Key.MasterName,
	}
	if err := genDoc.ValidateAndComplete(); err != nil {
		return fmt.Errorf("genesis doc: %w", err)
	}
	if err := genDoc.SaveAs(genFile); err != nil {
		return err
	}
	logger.Info("generated genesis file", "path", genFile, "master", genDoc.InitialMaster)
	return nil
}
