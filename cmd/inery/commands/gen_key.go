package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inery/inery/crypto"
)

// MakeGenKeyCommand creates the command that prints a new master key pair.
func MakeGenKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "gen-key",
		Aliases: []string{"gen_key"},
		Short:   "Generate a new master key pair",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := crypto.GenPrivKey()
			if err != nil {
				return err
			}
			bz, err := json.MarshalIndent(struct {
				PubKey  crypto.PubKey `json:"pub_key"`
				PrivKey string        `json:"priv_key"`
			}{
				PubKey:  priv.PubKey(),
				PrivKey: priv.String(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
}
