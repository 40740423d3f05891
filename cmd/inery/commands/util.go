package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inery/inery/config"
	"github.com/inery/inery/internal/state"
	"github.com/inery/inery/libs/log"
	tmos "github.com/inery/inery/libs/os"
	"github.com/inery/inery/types"
)

const scheduleDBName = "schedule"

// loadGenesis reads the genesis file of conf, or returns nil if there is
// none.
func loadGenesis(conf *config.Config) (*types.GenesisDoc, error) {
	genFile := conf.GenesisFile()
	if !tmos.FileExists(genFile) {
		return nil, nil
	}
	return types.GenesisDocFromFile(genFile)
}

// loadTracker opens the schedule store of conf and a tracker on top of it.
// The caller closes the returned store.
func loadTracker(conf *config.Config, logger log.Logger, metrics *state.Metrics) (*state.ScheduleTracker, state.Store, error) {
	genDoc, err := loadGenesis(conf)
	if err != nil {
		return nil, nil, err
	}

	db, err := config.DefaultDBProvider(&config.DBContext{ID: scheduleDBName, Config: conf})
	if err != nil {
		return nil, nil, fmt.Errorf("opening schedule db: %w", err)
	}
	store := state.NewStore(db)

	tracker, err := state.NewScheduleTracker(store, genDoc, logger.With("module", "schedule"), metrics)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			logger.Error("closing schedule store", "err", cerr)
		}
		return nil, nil, err
	}
	return tracker, store, nil
}

// metricsFor returns Prometheus metrics if conf enables them, and no-op
// metrics otherwise.
func metricsFor(conf *config.Config) *state.Metrics {
	if conf.Instrumentation.Prometheus {
		return state.PrometheusMetrics(conf.Instrumentation.Namespace)
	}
	return state.NopMetrics()
}

// startPrometheusServer starts a Prometheus HTTP server, listening for metrics
// collectors on addr.
func startPrometheusServer(addr string, logger log.Logger) *http.Server {
	srv := &http.Server{
		Addr: addr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: 1},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	return srv
}
