package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	// set up some defaults
	cfg := DefaultConfig()
	assert.NotNil(cfg.Chain)
	assert.NotNil(cfg.Instrumentation)

	// check the root dir stuff...
	cfg.SetRoot("/foo")
	cfg.Genesis = "bar"
	cfg.DBPath = "/opt/data"

	assert.Equal("/foo/bar", cfg.GenesisFile())
	assert.Equal("/opt/data", cfg.DBDir())
	assert.Equal("/foo/config/master_key.json", cfg.MasterKeyFile())
	assert.Equal("/foo/data/master_state.json", cfg.MasterStateFile())
}

func TestConfigValidateBasic(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateBasic())

	cfg.Chain.ValidationWorkers = 0
	assert.Error(t, cfg.ValidateBasic())
}

func TestBaseConfigValidateBasic(t *testing.T) {
	testCases := map[string]struct {
		malleate func(cfg *BaseConfig)
		wantErr  bool
	}{
		"default":          {func(*BaseConfig) {}, false},
		"json format":      {func(cfg *BaseConfig) { cfg.LogFormat = LogFormatJSON }, false},
		"unknown format":   {func(cfg *BaseConfig) { cfg.LogFormat = "xml" }, true},
		"debug level":      {func(cfg *BaseConfig) { cfg.LogLevel = "debug" }, false},
		"unknown level":    {func(cfg *BaseConfig) { cfg.LogLevel = "verbose" }, true},
		"per-module level": {func(cfg *BaseConfig) { cfg.LogLevel = "state:info,*:error" }, true},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			cfg := TestBaseConfig()
			tc.malleate(&cfg)
			if tc.wantErr {
				assert.Error(t, cfg.ValidateBasic())
			} else {
				assert.NoError(t, cfg.ValidateBasic())
			}
		})
	}
}

func TestInstrumentationConfigValidateBasic(t *testing.T) {
	cfg := TestInstrumentationConfig()
	assert.NoError(t, cfg.ValidateBasic())

	cfg.Prometheus = true
	cfg.PrometheusListenAddr = ""
	assert.Error(t, cfg.ValidateBasic())

	cfg = TestInstrumentationConfig()
	cfg.Namespace = ""
	assert.Error(t, cfg.ValidateBasic())
}
