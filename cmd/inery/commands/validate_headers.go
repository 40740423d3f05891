package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inery/inery/config"
	"github.com/inery/inery/crypto"
	"github.com/inery/inery/internal/state"
	"github.com/inery/inery/libs/log"
	"github.com/inery/inery/types"
)

type validateSummaryJSON struct {
	Headers        int     `json:"headers"`
	Applied        int     `json:"applied"`
	ActiveVersion  uint32  `json:"active_version"`
	PendingVersion *uint32 `json:"pending_version,omitempty"`
}

// MakeValidateHeadersCommand creates the command that validates a JSON list
// of signed block headers, in order, and applies the schedule changes they
// carry to the local schedule store.
func MakeValidateHeadersCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:     "validate-headers <file>",
		Aliases: []string{"validate_headers"},
		Short:   "Validate signed block headers and apply their schedule changes",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			headers, err := readHeaders(args[0])
			if err != nil {
				return err
			}
			summary, err := validateHeaders(cmd.Context(), conf, logger, headers, batchSize)
			if summary != nil {
				bz, jerr := json.MarshalIndent(summary, "", "  ")
				if jerr != nil {
					return jerr
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			}
			return err
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "number of headers validated concurrently")
	return cmd
}

func readHeaders(file string) ([]*types.SignedBlockHeader, error) {
	bz, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var headers []*types.SignedBlockHeader
	if err := json.Unmarshal(bz, &headers); err != nil {
		return nil, fmt.Errorf("decoding headers from %s: %w", file, err)
	}
	for i, h := range headers {
		if h == nil {
			return nil, fmt.Errorf("header %d is null", i)
		}
	}
	return headers, nil
}

func validateHeaders(
	ctx context.Context,
	conf *config.Config,
	logger log.Logger,
	headers []*types.SignedBlockHeader,
	batchSize int,
) (summary *validateSummaryJSON, err error) {
	metrics := metricsFor(conf)
	if conf.Instrumentation.Prometheus {
		srv := startPrometheusServer(conf.Instrumentation.PrometheusListenAddr, logger)
		defer func() {
			if serr := srv.Shutdown(context.Background()); serr != nil {
				logger.Error("Prometheus HTTP server Shutdown", "err", serr)
			}
		}()
	}

	tracker, store, err := loadTracker(conf, logger, metrics)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	validator := state.NewHeaderValidator(
		conf.Chain,
		tracker,
		crypto.Secp256k1Recoverer{},
		logger.With("module", "validator"),
		metrics,
	)
	applied, err := state.ApplyHeaders(ctx, validator, tracker, headers, batchSize, conf.Chain.IrreversibilityLag)

	summary = &validateSummaryJSON{
		Headers:       len(headers),
		Applied:       applied,
		ActiveVersion: tracker.Active().Version,
	}
	if p, ok := tracker.Pending(); ok {
		version := p.Schedule.Version
		summary.PendingVersion = &version
	}
	if err != nil {
		return summary, fmt.Errorf("after %d of %d headers: %w", applied, len(headers), err)
	}
	logger.Info("validated headers", "applied", applied, "active_version", summary.ActiveVersion)
	return summary, nil
}
