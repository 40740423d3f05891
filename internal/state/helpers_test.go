package state

import (
	"testing"

	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/inery/inery/config"
	"github.com/inery/inery/crypto"
	"github.com/inery/inery/libs/log"
	"github.com/inery/inery/types"
)

// testMetrics are Metrics backed by unregistered Prometheus vectors, so
// tests can read them back.
type testMetrics struct {
	*Metrics
	validated *stdprometheus.CounterVec
	rejected  *stdprometheus.CounterVec
	changes   *stdprometheus.CounterVec
	version   *stdprometheus.GaugeVec
}

func newTestMetrics() *testMetrics {
	tm := &testMetrics{
		validated: stdprometheus.NewCounterVec(stdprometheus.CounterOpts{Name: "validated"}, nil),
		rejected:  stdprometheus.NewCounterVec(stdprometheus.CounterOpts{Name: "rejected"}, []string{"reason"}),
		changes:   stdprometheus.NewCounterVec(stdprometheus.CounterOpts{Name: "changes"}, nil),
		version:   stdprometheus.NewGaugeVec(stdprometheus.GaugeOpts{Name: "version"}, nil),
	}
	tm.Metrics = &Metrics{
		HeadersValidated: kitprometheus.NewCounter(tm.validated),
		HeadersRejected:  kitprometheus.NewCounter(tm.rejected),
		ScheduleChanges:  kitprometheus.NewCounter(tm.changes),
		ScheduleVersion:  kitprometheus.NewGauge(tm.version),
	}
	return tm
}

func (tm *testMetrics) validatedCount() float64 {
	return testutil.ToFloat64(tm.validated.WithLabelValues())
}

func (tm *testMetrics) rejectedCount(reason string) float64 {
	return testutil.ToFloat64(tm.rejected.WithLabelValues(reason))
}

func (tm *testMetrics) changesCount() float64 {
	return testutil.ToFloat64(tm.changes.WithLabelValues())
}

func (tm *testMetrics) activeVersion() float64 {
	return testutil.ToFloat64(tm.version.WithLabelValues())
}

// testChain holds a tracker bootstrapped with a single-key schedule over
// keys, and a validator reading from it.
type testChain struct {
	keys      []crypto.PrivKey
	genesis   *types.MasterAuthoritySchedule
	db        dbm.DB
	store     Store
	tracker   *ScheduleTracker
	validator *HeaderValidator
	metrics   *testMetrics
	cfg       *config.ChainConfig
}

func newTestChain(t *testing.T, numMasters int, cfg *config.ChainConfig) *testChain {
	t.Helper()
	keys := types.RandMasterKeys(numMasters)
	return newTestChainWithSchedule(t, keys, types.MakeSingleKeySchedule(0, keys), cfg)
}

// newTestChainWithSchedule bootstraps the tracker with genesis. keys[i] is
// the signing key of master i.
func newTestChainWithSchedule(
	t *testing.T,
	keys []crypto.PrivKey,
	genesis *types.MasterAuthoritySchedule,
	cfg *config.ChainConfig,
) *testChain {
	t.Helper()

	tc := &testChain{
		keys:    keys,
		genesis: genesis,
		db:      dbm.NewMemDB(),
		metrics: newTestMetrics(),
		cfg:     cfg,
	}
	tc.store = NewStore(tc.db)
	t.Cleanup(func() { _ = tc.store.Close() })

	var err error
	tc.tracker, err = NewScheduleTracker(
		tc.store,
		&types.GenesisDoc{InitialSchedule: genesis},
		log.TestingLogger(),
		tc.metrics.Metrics,
	)
	require.NoError(t, err)

	tc.validator = NewHeaderValidator(cfg, tc.tracker, crypto.Secp256k1Recoverer{}, log.TestingLogger(), tc.metrics.Metrics)
	return tc
}

// header returns a header following prev, produced by master i of the
// genesis schedule.
func (tc *testChain) header(prev types.BlockID, i int) types.BlockHeader {
	return types.MakeHeader(prev, types.TestMasterName(i), 0)
}

// sign signs h with master i's genesis key.
func (tc *testChain) sign(h types.BlockHeader, i int) *types.SignedBlockHeader {
	return types.MakeSignedHeader(h, tc.keys[i])
}

// makeHeaders builds n linked headers, rotating through the genesis
// masters. edit may change header k before it is signed and return a key to
// sign it with instead of the master's genesis key.
func (tc *testChain) makeHeaders(
	t *testing.T,
	n int,
	edit func(k int, h *types.BlockHeader) *crypto.PrivKey,
) []*types.SignedBlockHeader {
	t.Helper()
	headers := make([]*types.SignedBlockHeader, n)
	var prev types.BlockID
	for k := 0; k < n; k++ {
		i := k % len(tc.keys)
		h := tc.header(prev, i)
		key := tc.keys[i]
		if edit != nil {
			if signer := edit(k, &h); signer != nil {
				key = *signer
			}
		}
		headers[k] = types.MakeSignedHeader(h, key)
		prev = headers[k].ID()
	}
	return headers
}

// scheduleChange adds a schedule change extension to h.
func scheduleChange(t *testing.T, h *types.BlockHeader, s *types.MasterAuthoritySchedule) {
	t.Helper()
	require.NoError(t, h.EmplaceExtension(types.NewMasterScheduleChangeExtension(s)))
}
