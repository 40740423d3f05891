package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inery/inery/config"
	"github.com/inery/inery/libs/cli"
	"github.com/inery/inery/libs/log"
)

const (
	// EnvPrefix is the prefix of environment variables read by the CLI,
	// e.g. INERY_HOME.
	EnvPrefix = "INERY"

	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

// ParseConfig retrieves the default environment configuration,
// sets up the inery root and ensures that the root exists
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point for inery.
func RootCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inery",
		Short: "Master schedule and block header validation",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == versionCmdName {
				return nil
			}

			// the config keys use underscores
			for flag, key := range map[string]string{
				flagLogLevel:  "log_level",
				flagLogFormat: "log_format",
			} {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}

			pconf, err := ParseConfig(conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			if err := config.EnsureRoot(conf.RootDir); err != nil {
				return err
			}
			return log.OverrideWithNewLogger(logger, conf.LogFormat, conf.LogLevel)
		},
	}
	cmd.PersistentFlags().String(flagLogLevel, conf.LogLevel, "log level")
	cmd.PersistentFlags().String(flagLogFormat, conf.LogFormat, "log format (plain, text or json)")
	return cli.PrepareBaseCmd(cmd, EnvPrefix, os.ExpandEnv(filepath.Join("$HOME", config.DefaultIneryDir)))
}
