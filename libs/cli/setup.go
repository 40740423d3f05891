package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	HomeFlag  = "home"
	TraceFlag = "trace"
)

// PrepareBaseCmd adds the home and trace flags to cmd, reads environment
// variables with envPrefix and loads the config file from the home
// directory before cmd's own PersistentPreRunE.
func PrepareBaseCmd(cmd *cobra.Command, envPrefix, defaultHome string) *cobra.Command {
	cobra.OnInitialize(func() { InitEnv(envPrefix) })
	cmd.PersistentFlags().String(HomeFlag, defaultHome, "directory holding config and data")
	cmd.PersistentFlags().Bool(TraceFlag, false, "print errors in full detail")
	cmd.PersistentPreRunE = chainRunE(BindFlagsLoadViper, cmd.PersistentPreRunE)
	return cmd
}

// InitEnv makes viper read PREFIX_KEY variables. PREFIXKEY is accepted too
// and copied to PREFIX_KEY.
func InitEnv(prefix string) {
	prefix = strings.ToUpper(prefix)
	underscored := prefix + "_"
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) || strings.HasPrefix(name, underscored) {
			continue
		}
		os.Setenv(underscored+strings.TrimPrefix(name, prefix), value)
	}

	viper.SetEnvPrefix(prefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

type cobraRunE func(cmd *cobra.Command, args []string) error

// chainRunE runs each non-nil hook in order and stops at the first error.
func chainRunE(hooks ...cobraRunE) cobraRunE {
	return func(cmd *cobra.Command, args []string) error {
		for _, hook := range hooks {
			if hook == nil {
				continue
			}
			if err := hook(cmd, args); err != nil {
				return err
			}
		}
		return nil
	}
}

// BindFlagsLoadViper binds cmd's flags, inherited ones included, and reads
// config.toml from the home directory or its config subdirectory. A missing
// file is not an error.
func BindFlagsLoadViper(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	home := viper.GetString(HomeFlag)
	viper.Set(HomeFlag, home)
	viper.SetConfigName("config")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, "config"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

// RunWithTrace executes cmd. On error it prints the error to cmd's error
// output, with the %+v form when the trace flag is set.
func RunWithTrace(ctx context.Context, cmd *cobra.Command) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	if viper.GetBool(TraceFlag) {
		fmt.Fprintf(cmd.ErrOrStderr(), "ERROR: %+v\n", err)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "ERROR: %v\n", err)
	}
	return err
}

// RunWithArgs runs cmd through RunWithTrace with os.Args set to args and env
// added to the environment. Both are restored on return.
func RunWithArgs(ctx context.Context, cmd *cobra.Command, args []string, env map[string]string) error {
	savedArgs := os.Args
	savedEnv := make(map[string]string, len(env))
	defer func() {
		os.Args = savedArgs
		for k, v := range savedEnv {
			os.Setenv(k, v)
		}
	}()

	os.Args = args
	for k, v := range env {
		savedEnv[k] = os.Getenv(k)
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}

	return RunWithTrace(ctx, cmd)
}
