package config

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	tmos "github.com/inery/inery/libs/os"
)

const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate")
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

// EnsureRoot creates the root, config, and data directories if they don't
// exist, and writes a default config file if there is none.
func EnsureRoot(rootDir string) error {
	for _, dir := range []string{
		rootDir,
		filepath.Join(rootDir, defaultConfigDir),
		filepath.Join(rootDir, defaultDataDir),
	} {
		if err := tmos.EnsureDir(dir, defaultDirPerm); err != nil {
			return err
		}
	}

	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)
	if !tmos.FileExists(configFilePath) {
		return WriteConfigFile(rootDir, DefaultConfig())
	}
	return nil
}

// WriteConfigFile renders config using the template and writes it to
// the config file under rootDir.
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(filepath.Join(rootDir, defaultConfigFilePath))
}

// WriteToTemplate renders cfg and atomically writes it to path as given.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}

	return tmos.WriteFileAtomic(path, buffer.Bytes(), 0644)
}

// Keys must match the mapstructure tags in config.go.
const defaultConfigTemplate = `# inery configuration (TOML).

# Relative paths resolve against the home directory: $HOME/.inery unless
# --home or $INERY_HOME says otherwise.

### base ###############################################################

# Schedule database backend. goleveldb and memdb are always available;
# cleveldb, boltdb, rocksdb and badgerdb need the matching build tag.
db_backend = "{{ .BaseConfig.DBBackend }}"

# Schedule database directory
db_dir = "{{ js .BaseConfig.DBPath }}"

# debug | info | warn | error
log_level = "{{ .BaseConfig.LogLevel }}"

# plain (colored) | text | json
log_format = "{{ .BaseConfig.LogFormat }}"

# Path to the JSON file containing the initial master schedule
genesis_file = "{{ js .BaseConfig.Genesis }}"

# Path to the JSON file containing the master signing key
master_key_file = "{{ js .BaseConfig.MasterKey }}"

# Path to the JSON file with the last block signed by the master key
master_state_file = "{{ js .BaseConfig.MasterState }}"

### header validation ##################################################
[chain]

# First block whose schedule changes travel in the header extension.
# Earlier blocks use the legacy schedule_version and new_masters fields.
extension_schedule_activation_block = {{ .Chain.ExtensionScheduleActivationBlock }}

# Number of goroutines validating headers concurrently.
validation_workers = {{ .Chain.ValidationWorkers }}

# Blocks after which a block is irreversible. A proposed master schedule
# becomes active once the block that proposed it is irreversible.
irreversibility_lag = {{ .Chain.IrreversibilityLag }}

### metrics ############################################################
[instrumentation]

# Serve Prometheus metrics on /metrics while validate-headers runs.
prometheus = {{ .Instrumentation.Prometheus }}

# host:port of the /metrics listener
prometheus_listen_addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Prefix of every metric name
namespace = "{{ .Instrumentation.Namespace }}"
`

// ResetTestRoot creates a fresh root directory under dir, with a default
// config file, and returns a test config rooted there.
func ResetTestRoot(dir, testName string) (*Config, error) {
	rootDir, err := os.MkdirTemp(dir, testName)
	if err != nil {
		return nil, err
	}
	if err := EnsureRoot(rootDir); err != nil {
		return nil, err
	}
	return TestConfig().SetRoot(rootDir), nil
}
