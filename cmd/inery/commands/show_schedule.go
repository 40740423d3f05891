package commands

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/inery/inery/config"
	"github.com/inery/inery/internal/state"
	"github.com/inery/inery/libs/log"
	"github.com/inery/inery/types"
)

type pendingScheduleJSON struct {
	BlockNum uint32                         `json:"block_num"`
	Schedule *types.MasterAuthoritySchedule `json:"schedule"`
}

type scheduleStatusJSON struct {
	Active   *types.MasterAuthoritySchedule `json:"active"`
	Pending  *pendingScheduleJSON           `json:"pending"`
	Versions []uint32                       `json:"versions"`
}

// MakeShowScheduleCommand creates the command that prints the active and
// pending master schedules, or a past schedule by version.
func MakeShowScheduleCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var atVersion int64
	cmd := &cobra.Command{
		Use:     "show-schedule",
		Aliases: []string{"show_schedule"},
		Short:   "Show the master schedules",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			tracker, store, err := loadTracker(conf, logger, state.NopMetrics())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := store.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			var out interface{}
			if atVersion > math.MaxUint32 {
				return fmt.Errorf("--at-version %d is out of range", atVersion)
			}
			if atVersion >= 0 {
				s, err := store.LoadSchedule(uint32(atVersion))
				if err != nil {
					return err
				}
				out = s
			} else {
				status := scheduleStatusJSON{Active: tracker.Active()}
				if p, ok := tracker.Pending(); ok {
					status.Pending = &pendingScheduleJSON{BlockNum: p.BlockNum, Schedule: p.Schedule}
				}
				if status.Versions, err = store.ScheduleVersions(); err != nil {
					return err
				}
				out = status
			}

			bz, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
	cmd.Flags().Int64Var(&atVersion, "at-version", -1, "print the schedule that was active at this version")
	return cmd
}
