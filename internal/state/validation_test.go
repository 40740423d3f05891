package state

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inery/inery/config"
	"github.com/inery/inery/crypto"
	"github.com/inery/inery/libs/log"
	"github.com/inery/inery/types"
)

func TestValidateHeader(t *testing.T) {
	tc := newTestChain(t, 3, config.TestChainConfig())

	h := tc.header(types.BlockIDFromNum(41), 1)
	sh := tc.sign(h, 1)

	vh, err := tc.validator.ValidateHeader(sh)
	require.NoError(t, err)
	assert.Same(t, sh, vh.Header)
	assert.EqualValues(t, 42, vh.BlockNum)
	assert.Equal(t, sh.ID(), vh.ID)
	assert.Equal(t, tc.keys[1].PubKey(), vh.Signer)
	assert.Equal(t, 1, vh.Relevant)
	assert.Nil(t, vh.ScheduleChange)
	assert.Empty(t, vh.Extensions)

	assert.EqualValues(t, 1, tc.metrics.validatedCount())
}

func TestValidateHeaderRejects(t *testing.T) {
	stranger := types.RandMasterKeys(1)[0]

	testCases := []struct {
		name   string
		cfg    func(*config.ChainConfig)
		edit   func(t *testing.T, tc *testChain, h *types.BlockHeader)
		signer func(tc *testChain) crypto.PrivKey
		err    error
		reason string
	}{
		{
			name:   "empty master",
			edit:   func(t *testing.T, tc *testChain, h *types.BlockHeader) { h.Master = 0 },
			err:    types.ErrEmptyMaster,
			reason: "invalid_header",
		},
		{
			name:   "too many confirmed",
			edit:   func(t *testing.T, tc *testChain, h *types.BlockHeader) { h.Confirmed = 1000 },
			err:    types.ErrTooManyConfirmed,
			reason: "invalid_header",
		},
		{
			name:   "unknown master",
			edit:   func(t *testing.T, tc *testChain, h *types.BlockHeader) { h.Master = types.MustAccountName("nobody") },
			err:    ErrUnknownMaster,
			reason: "unknown_master",
		},
		{
			name:   "signed by another master",
			signer: func(tc *testChain) crypto.PrivKey { return tc.keys[1] },
			err:    ErrIrrelevantSignature,
			reason: "irrelevant_signature",
		},
		{
			name:   "signed by a stranger",
			signer: func(tc *testChain) crypto.PrivKey { return stranger },
			err:    ErrIrrelevantSignature,
			reason: "irrelevant_signature",
		},
		{
			name: "unknown extension",
			edit: func(t *testing.T, tc *testChain, h *types.BlockHeader) {
				h.HeaderExtensions = append(h.HeaderExtensions, types.Extension{Type: 9, Data: []byte{1}})
			},
			err:    types.ErrUnknownHeaderExtension,
			reason: "malformed_extension",
		},
		{
			name: "malformed extension",
			edit: func(t *testing.T, tc *testChain, h *types.BlockHeader) {
				h.HeaderExtensions = append(h.HeaderExtensions,
					types.Extension{Type: types.MasterScheduleChangeExtensionID, Data: []byte{0, 0, 1}})
			},
			err:    types.ErrMalformedHeaderExtension,
			reason: "malformed_extension",
		},
		{
			name: "duplicate schedule change",
			edit: func(t *testing.T, tc *testChain, h *types.BlockHeader) {
				ext := types.NewMasterScheduleChangeExtension(types.MakeSingleKeySchedule(1, tc.keys))
				require.NoError(t, h.EmplaceExtension(ext))
				h.HeaderExtensions = append(h.HeaderExtensions, h.HeaderExtensions[0])
			},
			err:    types.ErrDuplicateHeaderExtension,
			reason: "malformed_extension",
		},
		{
			name: "legacy schedule and schedule change",
			edit: func(t *testing.T, tc *testChain, h *types.BlockHeader) {
				scheduleChange(t, h, types.MakeSingleKeySchedule(1, tc.keys))
				h.SetLegacySchedule(types.LegacyMasterSchedule{Version: 1})
			},
			err:    ErrLegacyScheduleConflict,
			reason: "legacy_conflict",
		},
		{
			name: "legacy schedule after activation",
			edit: func(t *testing.T, tc *testChain, h *types.BlockHeader) {
				h.SetLegacySchedule(types.LegacyMasterSchedule{
					Version: 1,
					Masters: []types.LegacyMasterKey{{MasterName: types.TestMasterName(0), BlockSigningKey: tc.keys[0].PubKey()}},
				})
			},
			err:    ErrLegacyFieldsAfterActivation,
			reason: "legacy_conflict",
		},
		{
			name:   "schedule version after activation",
			edit:   func(t *testing.T, tc *testChain, h *types.BlockHeader) { h.ScheduleVersion = 1 },
			err:    ErrLegacyFieldsAfterActivation,
			reason: "legacy_conflict",
		},
		{
			name: "schedule change before activation",
			cfg:  func(cfg *config.ChainConfig) { cfg.ExtensionScheduleActivationBlock = 100 },
			edit: func(t *testing.T, tc *testChain, h *types.BlockHeader) {
				scheduleChange(t, h, types.MakeSingleKeySchedule(1, tc.keys))
			},
			err:    ErrScheduleChangeBeforeActivation,
			reason: "legacy_conflict",
		},
		{
			name:   "schedule version mismatch before activation",
			cfg:    func(cfg *config.ChainConfig) { cfg.ExtensionScheduleActivationBlock = 100 },
			edit:   func(t *testing.T, tc *testChain, h *types.BlockHeader) { h.ScheduleVersion = 3 },
			err:    ErrScheduleVersionMismatch,
			reason: "legacy_conflict",
		},
		{
			name: "invalid proposed schedule",
			edit: func(t *testing.T, tc *testChain, h *types.BlockHeader) {
				scheduleChange(t, h, types.NewMasterAuthoritySchedule(1))
			},
			err:    ErrInvalidScheduleChange,
			reason: "invalid_schedule",
		},
		{
			name: "invalid legacy schedule before activation",
			cfg:  func(cfg *config.ChainConfig) { cfg.ExtensionScheduleActivationBlock = 100 },
			edit: func(t *testing.T, tc *testChain, h *types.BlockHeader) {
				h.SetLegacySchedule(types.LegacyMasterSchedule{Version: 1})
			},
			err:    ErrInvalidScheduleChange,
			reason: "invalid_schedule",
		},
	}

	for _, tt := range testCases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.TestChainConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			tc := newTestChain(t, 3, cfg)

			h := tc.header(types.BlockIDFromNum(9), 0)
			if tt.edit != nil {
				tt.edit(t, tc, &h)
			}
			signer := tc.keys[0]
			if tt.signer != nil {
				signer = tt.signer(tc)
			}

			_, err := tc.validator.ValidateHeader(types.MakeSignedHeader(h, signer))
			require.ErrorIs(t, err, tt.err)
			assert.EqualValues(t, 1, tc.metrics.rejectedCount(tt.reason))
			assert.EqualValues(t, 0, tc.metrics.validatedCount())
		})
	}
}

func TestValidateHeaderScheduleVersion(t *testing.T) {
	tc := newTestChain(t, 2, config.TestChainConfig())
	require.NoError(t, tc.tracker.Propose(3, types.MakeSingleKeySchedule(4, tc.keys)))

	testCases := []struct {
		version uint32
		current uint32
		ok      bool
	}{
		{0, 4, false},
		{3, 4, false},
		{4, 4, false},
		{5, 0, true},
	}
	for _, tt := range testCases {
		t.Run(fmt.Sprint(tt.version), func(t *testing.T) {
			h := tc.header(types.BlockIDFromNum(5), 0)
			proposed := types.MakeSingleKeySchedule(tt.version, tc.keys)
			scheduleChange(t, &h, proposed)

			vh, err := tc.validator.ValidateHeader(tc.sign(h, 0))
			if tt.ok {
				require.NoError(t, err)
				assert.True(t, vh.ScheduleChange.Equal(proposed))
				_, ok := vh.Extensions.MasterScheduleChange()
				assert.True(t, ok)
				return
			}
			var notMonotonic ErrScheduleVersionNotMonotonic
			require.True(t, errors.As(err, &notMonotonic), "got %v", err)
			assert.Equal(t, ErrScheduleVersionNotMonotonic{Proposed: tt.version, Current: tt.current}, notMonotonic)
		})
	}
}

func TestValidateHeaderLegacyScheduleBeforeActivation(t *testing.T) {
	cfg := config.TestChainConfig()
	cfg.ExtensionScheduleActivationBlock = 50
	tc := newTestChain(t, 2, cfg)

	legacy := types.LegacyMasterSchedule{
		Version: 1,
		Masters: []types.LegacyMasterKey{
			{MasterName: types.TestMasterName(1), BlockSigningKey: tc.keys[1].PubKey()},
			{MasterName: types.TestMasterName(0), BlockSigningKey: tc.keys[0].PubKey()},
		},
	}
	h := tc.header(types.BlockIDFromNum(10), 1)
	h.SetLegacySchedule(legacy)

	vh, err := tc.validator.ValidateHeader(tc.sign(h, 1))
	require.NoError(t, err)
	require.NotNil(t, vh.ScheduleChange)
	assert.True(t, vh.ScheduleChange.Equal(types.NewMasterAuthorityScheduleFromLegacy(legacy)))

	// at the activation block the legacy fields are rejected
	h = tc.header(types.BlockIDFromNum(49), 1)
	h.SetLegacySchedule(legacy)
	_, err = tc.validator.ValidateHeader(tc.sign(h, 1))
	require.ErrorIs(t, err, ErrLegacyFieldsAfterActivation)
}

func TestValidateHeaderUnderweight(t *testing.T) {
	keys := types.RandMasterKeys(2)
	name := types.TestMasterName(0)
	genesis := types.NewMasterAuthoritySchedule(0, types.MasterAuthority{
		MasterName: name,
		Authority: types.NewBlockSigningAuthorityV0(2,
			types.KeyWeight{Key: keys[0].PubKey(), Weight: 1},
			types.KeyWeight{Key: keys[1].PubKey(), Weight: 1},
		),
	})
	tc := newTestChainWithSchedule(t, keys, genesis, config.TestChainConfig())

	_, err := tc.validator.ValidateHeader(tc.sign(tc.header(types.BlockIDFromNum(3), 0), 0))
	var underweight ErrAuthorityUnderweight
	require.True(t, errors.As(err, &underweight), "got %v", err)
	assert.Equal(t, ErrAuthorityUnderweight{Master: name, Relevant: 1}, underweight)
	assert.EqualValues(t, 1, tc.metrics.rejectedCount("underweight"))
}

type fixedRecoverer struct {
	key crypto.PubKey
	err error
}

func (r fixedRecoverer) RecoverPubKey(crypto.Checksum256, crypto.Signature) (crypto.PubKey, error) {
	return r.key, r.err
}

func TestValidateHeaderRecoveryErrorUnchanged(t *testing.T) {
	tc := newTestChain(t, 1, config.TestChainConfig())
	failure := errors.New("hsm unavailable")
	v := NewHeaderValidator(tc.cfg, tc.tracker, fixedRecoverer{err: failure}, log.TestingLogger(), NopMetrics())

	_, err := v.ValidateHeader(tc.sign(tc.header(types.BlockID{}, 0), 0))
	require.Equal(t, failure, err)
}

func TestValidateHeaderUsesRecoverer(t *testing.T) {
	tc := newTestChain(t, 2, config.TestChainConfig())
	// every signature recovers to master 1's key
	v := NewHeaderValidator(tc.cfg, tc.tracker, fixedRecoverer{key: tc.keys[1].PubKey()}, log.TestingLogger(), NopMetrics())

	h := tc.header(types.BlockID{}, 1)
	vh, err := v.ValidateHeader(&types.SignedBlockHeader{BlockHeader: h})
	require.NoError(t, err)
	assert.Equal(t, tc.keys[1].PubKey(), vh.Signer)
}

func TestValidateHeaders(t *testing.T) {
	defer leaktest.Check(t)()

	tc := newTestChain(t, 4, config.TestChainConfig())
	headers := tc.makeHeaders(t, 40, nil)

	results, err := tc.validator.ValidateHeaders(context.Background(), headers)
	require.NoError(t, err)
	require.Len(t, results, len(headers))

	got := make([]uint32, len(results))
	want := make([]uint32, len(results))
	for i, vh := range results {
		got[i] = vh.BlockNum
		want[i] = uint32(i + 1)
		assert.Same(t, headers[i], vh.Header)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("block numbers mismatch (-want +got):\n%s", diff)
	}
	assert.EqualValues(t, 40, tc.metrics.validatedCount())
}

func TestValidateHeadersEmpty(t *testing.T) {
	defer leaktest.Check(t)()

	tc := newTestChain(t, 1, config.TestChainConfig())
	results, err := tc.validator.ValidateHeaders(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestValidateHeadersFailure(t *testing.T) {
	defer leaktest.Check(t)()

	tc := newTestChain(t, 3, config.TestChainConfig())
	stranger := types.RandMasterKeys(1)[0]
	headers := tc.makeHeaders(t, 30, func(k int, h *types.BlockHeader) *crypto.PrivKey {
		if k == 17 {
			return &stranger
		}
		return nil
	})

	results, err := tc.validator.ValidateHeaders(context.Background(), headers)
	require.ErrorIs(t, err, ErrIrrelevantSignature)
	assert.Contains(t, err.Error(), "header 17 (block 18)")
	assert.Nil(t, results)
}

func TestValidateHeadersCanceled(t *testing.T) {
	defer leaktest.Check(t)()

	tc := newTestChain(t, 2, config.TestChainConfig())
	headers := tc.makeHeaders(t, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tc.validator.ValidateHeaders(ctx, headers)
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidateHeadersUsesOneSnapshot(t *testing.T) {
	tc := newTestChain(t, 2, config.TestChainConfig())

	// both headers propose version 1; validated together, neither sees the
	// other's proposal
	headers := tc.makeHeaders(t, 2, func(k int, h *types.BlockHeader) *crypto.PrivKey {
		scheduleChange(t, h, types.MakeSingleKeySchedule(1, tc.keys))
		return nil
	})
	results, err := tc.validator.ValidateHeaders(context.Background(), headers)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NoError(t, tc.tracker.Apply(results[0]))
	var notMonotonic ErrScheduleVersionNotMonotonic
	require.True(t, errors.As(tc.tracker.Apply(results[1]), &notMonotonic))
}

func TestApplyHeadersPromotesSchedule(t *testing.T) {
	cfg := config.TestChainConfig()
	lag := uint32(2)
	tc := newTestChain(t, 2, cfg)
	newKeys := types.RandMasterKeys(2)
	next := types.MakeSingleKeySchedule(1, newKeys)

	// block 3 proposes the new keys, block 5 makes block 3 irreversible, and
	// blocks 6 on are signed with the new keys
	headers := tc.makeHeaders(t, 9, func(k int, h *types.BlockHeader) *crypto.PrivKey {
		blockNum := uint32(k + 1)
		if blockNum == 3 {
			scheduleChange(t, h, next)
		}
		if blockNum >= 6 {
			return &newKeys[k%2]
		}
		return nil
	})

	for _, batchSize := range []int{1, 2, 4, 100} {
		t.Run(fmt.Sprint("batch ", batchSize), func(t *testing.T) {
			defer leaktest.Check(t)()
			tc := newTestChainWithSchedule(t, tc.keys, tc.genesis, cfg)

			applied, err := ApplyHeaders(context.Background(), tc.validator, tc.tracker, headers, batchSize, lag)
			require.NoError(t, err)
			assert.Equal(t, len(headers), applied)

			assert.True(t, tc.tracker.Active().Equal(next))
			_, ok := tc.tracker.Pending()
			assert.False(t, ok)
			assert.EqualValues(t, 1, tc.metrics.changesCount())
			assert.EqualValues(t, 1, tc.metrics.activeVersion())
		})
	}
}

func TestApplyHeadersStopsAtFirstInvalid(t *testing.T) {
	tc := newTestChain(t, 2, config.TestChainConfig())
	newKeys := types.RandMasterKeys(2)

	// the new keys sign before their schedule is irreversible
	headers := tc.makeHeaders(t, 8, func(k int, h *types.BlockHeader) *crypto.PrivKey {
		blockNum := uint32(k + 1)
		if blockNum == 3 {
			scheduleChange(t, h, types.MakeSingleKeySchedule(1, newKeys))
		}
		if blockNum >= 5 {
			return &newKeys[k%2]
		}
		return nil
	})

	applied, err := ApplyHeaders(context.Background(), tc.validator, tc.tracker, headers, 1, 2)
	require.ErrorIs(t, err, ErrIrrelevantSignature)
	assert.Equal(t, 4, applied)
	assert.True(t, tc.tracker.Active().Equal(tc.genesis))
	p, ok := tc.tracker.Pending()
	require.True(t, ok)
	assert.EqualValues(t, 3, p.BlockNum)
}

func TestApplyHeadersSupersededProposal(t *testing.T) {
	tc := newTestChain(t, 2, config.TestChainConfig())
	first := types.MakeSingleKeySchedule(1, tc.keys[:1])
	second := types.MakeSingleKeySchedule(2, tc.keys)

	// block 2 proposes version 1, block 3 replaces it with version 2
	headers := tc.makeHeaders(t, 7, func(k int, h *types.BlockHeader) *crypto.PrivKey {
		switch k + 1 {
		case 2:
			scheduleChange(t, h, first)
		case 3:
			scheduleChange(t, h, second)
		}
		return nil
	})

	applied, err := ApplyHeaders(context.Background(), tc.validator, tc.tracker, headers, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, applied)
	assert.True(t, tc.tracker.Active().Equal(second))

	versions, err := tc.store.ScheduleVersions()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2}, versions)
}

func TestRejectReason(t *testing.T) {
	testCases := []struct {
		err    error
		reason string
	}{
		{ErrAuthorityUnderweight{}, "underweight"},
		{fmt.Errorf("wrapped: %w", ErrScheduleVersionNotMonotonic{Proposed: 1}), "non_monotonic_version"},
		{types.ErrDuplicateHeaderExtension, "malformed_extension"},
		{ErrScheduleVersionMismatch, "legacy_conflict"},
		{ErrUnknownMaster, "unknown_master"},
		{ErrIrrelevantSignature, "irrelevant_signature"},
		{fmt.Errorf("%w: %w", ErrInvalidScheduleChange, types.ErrTooManyMasters), "invalid_schedule"},
		{crypto.ErrSignatureRecovery, "invalid_header"},
	}
	for _, tt := range testCases {
		assert.Equal(t, tt.reason, rejectReason(tt.err), tt.err.Error())
	}
}
