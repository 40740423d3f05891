package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inery/inery/types"
	"github.com/inery/inery/version"
)

const versionCmdName = "version"

// MakeVersionCommand creates the command that prints the software and
// protocol versions.
func MakeVersionCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   versionCmdName,
		Short: "Show version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return nil
			}
			values, err := json.MarshalIndent(struct {
				Inery            string `json:"inery"`
				BlockProtocol    uint64 `json:"block_protocol"`
				ScheduleProtocol uint64 `json:"schedule_protocol"`
				CodecVersion     uint16 `json:"codec_version"`
			}{
				Inery:            version.Version,
				BlockProtocol:    version.BlockProtocol.Uint64(),
				ScheduleProtocol: version.ScheduleProtocol.Uint64(),
				CodecVersion:     types.CodecVersion,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(values))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show protocol and codec versions")
	return cmd
}
