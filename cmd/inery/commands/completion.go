package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCompletionCmd returns a command that prints a completion script for
// rootCmd in the requested shell. A hidden command is left out of the help
// output.
func NewCompletionCmd(rootCmd *cobra.Command, hidden bool) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: fmt.Sprintf(`Print a completion script for the given shell (bash by default).

Load it in the current bash session with:

   $ . <(%[1]s completion)

or add that line to $HOME/.bashrc to load it in every session.
`, rootCmd.Use),
		Hidden:    hidden,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := "bash"
			if len(args) == 1 {
				shell = args[0]
			}
			out := cmd.OutOrStdout()
			switch shell {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			default:
				return fmt.Errorf("unsupported shell %q", shell)
			}
		},
	}
}
