package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/inery/inery/libs/log"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"
)

// Field comments below are mirrored in the template in toml.go; keep the two
// in sync. libs/cli looks for config.toml in defaultConfigDir.
var (
	DefaultIneryDir  = ".inery"
	defaultConfigDir = "config"
	defaultDataDir   = "data"

	defaultConfigFileName  = "config.toml"
	defaultGenesisJSONName = "genesis.json"
	defaultMasterKeyName   = "master_key.json"
	defaultMasterStateName = "master_state.json"

	defaultConfigFilePath  = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultGenesisJSONPath = filepath.Join(defaultConfigDir, defaultGenesisJSONName)
	defaultMasterKeyPath   = filepath.Join(defaultConfigDir, defaultMasterKeyName)
	defaultMasterStatePath = filepath.Join(defaultDataDir, defaultMasterStateName)
)

// Config defines the top level configuration of an inery node
type Config struct {
	BaseConfig `mapstructure:",squash"`

	Chain           *ChainConfig           `mapstructure:"chain"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Chain:           DefaultChainConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig is DefaultConfig with an in-memory database and small worker
// and lag settings.
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Chain:           TestChainConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the directory every relative path in cfg resolves against.
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic checks every section and reports the first invalid one.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Chain.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [chain] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration of an inery node
type BaseConfig struct {
	// Home directory. Set from the --home flag before unmarshaling.
	RootDir string `mapstructure:"home"`

	// Database backend: goleveldb | cleveldb | boltdb | rocksdb | badgerdb | memdb
	DBBackend string `mapstructure:"db_backend"`

	// Directory of the schedule database, relative to home
	DBPath string `mapstructure:"db_dir"`

	// debug | info | warn | error
	LogLevel string `mapstructure:"log_level"`

	// plain | text | json
	LogFormat string `mapstructure:"log_format"`

	// Path to the JSON file containing the initial master schedule
	Genesis string `mapstructure:"genesis_file"`

	// Path to the JSON file containing the master signing key
	MasterKey string `mapstructure:"master_key_file"`

	// Path to the JSON file with the last block signed by the master key
	MasterState string `mapstructure:"master_state_file"`
}

// DefaultBaseConfig returns a default base configuration
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Genesis:     defaultGenesisJSONPath,
		MasterKey:   defaultMasterKeyPath,
		MasterState: defaultMasterStatePath,
		LogLevel:    DefaultLogLevel,
		LogFormat:   LogFormatPlain,
		DBBackend:   "goleveldb",
		DBPath:      defaultDataDir,
	}
}

// TestBaseConfig returns a base configuration for testing
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.DBBackend = "memdb"
	return cfg
}

// GenesisFile is the absolute genesis path.
func (cfg BaseConfig) GenesisFile() string {
	return rootify(cfg.Genesis, cfg.RootDir)
}

// MasterKeyFile is the absolute path of the master key file.
func (cfg BaseConfig) MasterKeyFile() string {
	return rootify(cfg.MasterKey, cfg.RootDir)
}

// MasterStateFile is the absolute path of the last-sign-state file.
func (cfg BaseConfig) MasterStateFile() string {
	return rootify(cfg.MasterState, cfg.RootDir)
}

// DBDir is the absolute database directory.
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic rejects unknown log settings.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON, log.LogFormatText:
	default:
		return errors.New("unknown log_format (must be 'plain', 'text' or 'json')")
	}
	switch cfg.LogLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	return nil
}

// DefaultLogLevel is the log level of a new config
const DefaultLogLevel = log.LogLevelInfo

//-----------------------------------------------------------------------------
// ChainConfig

// ChainConfig defines how block headers and master schedules are validated.
type ChainConfig struct {
	// First block at which schedule changes travel in the header extension.
	// Before it, headers use the legacy schedule_version and new_masters
	// fields; from it on, those fields must be empty.
	ExtensionScheduleActivationBlock uint32 `mapstructure:"extension_schedule_activation_block"`

	// Number of goroutines validating headers concurrently.
	ValidationWorkers int `mapstructure:"validation_workers"`

	// Number of blocks after which a block is treated as irreversible. A
	// proposed schedule becomes active once its block is irreversible.
	IrreversibilityLag uint32 `mapstructure:"irreversibility_lag"`
}

// DefaultChainConfig returns a default configuration for header validation
func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{
		ExtensionScheduleActivationBlock: 0,
		ValidationWorkers:                runtime.NumCPU(),
		IrreversibilityLag:               12,
	}
}

// TestChainConfig returns a configuration for testing header validation
func TestChainConfig() *ChainConfig {
	cfg := DefaultChainConfig()
	cfg.ValidationWorkers = 4
	cfg.IrreversibilityLag = 2
	return cfg
}

func (cfg *ChainConfig) ValidateBasic() error {
	if cfg.ValidationWorkers < 1 {
		return errors.New("validation_workers must be at least 1")
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig controls the metrics endpoint.
type InstrumentationConfig struct {
	// Serve /metrics while headers are validated.
	Prometheus bool `mapstructure:"prometheus"`

	// host:port of the /metrics listener
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Prefix of every metric name
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig leaves the endpoint disabled.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":9610",
		Namespace:            "inery",
	}
}

// TestInstrumentationConfig keeps the endpoint disabled so tests never
// register global metrics.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus_listen_addr must be set when prometheus is enabled")
	}
	if cfg.Namespace == "" {
		return errors.New("namespace can't be empty")
	}
	return nil
}

//-----------------------------------------------------------------------------

func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
