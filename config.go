package docjournal

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dogmatiq/docjournal/snapshot"
	"github.com/dogmatiq/dodeca/config"
	"gopkg.in/yaml.v3"
)

// Config is the externally supplied configuration of an engine and its store.
type Config struct {
	// EntityNamespace partitions the engine's records from those of other
	// journals in the same database.
	EntityNamespace string `yaml:"entity_namespace"`

	// ServerEndpoints is the list of endpoints used to connect to the document
	// store. See OpenStore().
	ServerEndpoints []string `yaml:"server_endpoints"`

	// Credentials are passed to document stores that require authentication.
	Credentials Credentials `yaml:"credentials"`

	// AutoInitializeStorage controls whether the database is created if it
	// does not already exist. If it is nil, it is enabled.
	AutoInitializeStorage *bool `yaml:"auto_initialize_storage"`

	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`

	// ConsistencyLevel is the durability guarantee required when saving
	// snapshots: "single", "majority" or "cluster-wide".
	ConsistencyLevel string `yaml:"consistency_level"`

	RefreshInterval            time.Duration `yaml:"refresh_interval"`
	MaxBufferSize              int           `yaml:"max_buffer_size"`
	ReadHighestFromAllReplicas bool          `yaml:"read_highest_from_all_replicas"`
}

// Credentials authenticate a connection to a document store.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// ParseConfig parses a YAML configuration document.
//
// Unrecognized keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to parse configuration: %w", err)
	}

	return cfg, nil
}

// ConfigFromEnvironment loads the configuration from DOCJOURNAL_* environment
// variables.
func ConfigFromEnvironment() Config {
	return ConfigFromBucket(config.Environment())
}

// ConfigFromBucket loads the configuration from a dodeca config bucket.
//
// Keys are the upper-case form of the YAML keys prefixed with "DOCJOURNAL_",
// such as DOCJOURNAL_READ_TIMEOUT. It panics if a value is malformed.
func ConfigFromBucket(b config.Bucket) Config {
	cfg := Config{
		EntityNamespace: config.AsStringDefault(b, "DOCJOURNAL_ENTITY_NAMESPACE", ""),
		Credentials: Credentials{
			Username: config.AsStringDefault(b, "DOCJOURNAL_USERNAME", ""),
			Password: config.AsStringDefault(b, "DOCJOURNAL_PASSWORD", ""),
		},
		WriteTimeout:               config.AsDurationDefault(b, "DOCJOURNAL_WRITE_TIMEOUT", 0),
		ReadTimeout:                config.AsDurationDefault(b, "DOCJOURNAL_READ_TIMEOUT", 0),
		ConsistencyLevel:           config.AsStringDefault(b, "DOCJOURNAL_CONSISTENCY_LEVEL", ""),
		RefreshInterval:            config.AsDurationDefault(b, "DOCJOURNAL_REFRESH_INTERVAL", 0),
		MaxBufferSize:              config.AsIntDefault(b, "DOCJOURNAL_MAX_BUFFER_SIZE", 0),
		ReadHighestFromAllReplicas: config.AsBoolDefault(b, "DOCJOURNAL_READ_HIGHEST_FROM_ALL_REPLICAS", false),
	}

	for _, ep := range strings.Split(
		config.AsStringDefault(b, "DOCJOURNAL_SERVER_ENDPOINTS", ""),
		",",
	) {
		if ep = strings.TrimSpace(ep); ep != "" {
			cfg.ServerEndpoints = append(cfg.ServerEndpoints, ep)
		}
	}

	auto := config.AsBoolDefault(b, "DOCJOURNAL_AUTO_INITIALIZE_STORAGE", true)
	cfg.AutoInitializeStorage = &auto

	return cfg
}

// Options returns the engine options described by the configuration.
func (c Config) Options() ([]EngineOption, error) {
	level, err := snapshot.ParseConsistencyLevel(c.ConsistencyLevel)
	if err != nil {
		return nil, err
	}

	if strings.Contains(c.EntityNamespace, "/") {
		return nil, fmt.Errorf("entity namespace %q must not contain '/'", c.EntityNamespace)
	}

	for _, d := range []time.Duration{c.WriteTimeout, c.ReadTimeout, c.RefreshInterval} {
		if d < 0 {
			return nil, fmt.Errorf("durations must not be negative, got %s", d)
		}
	}

	if c.MaxBufferSize < 0 {
		return nil, fmt.Errorf("buffer size must not be negative, got %d", c.MaxBufferSize)
	}

	options := []EngineOption{
		WithEntityNamespace(c.EntityNamespace),
		WithWriteTimeout(c.WriteTimeout),
		WithReadTimeout(c.ReadTimeout),
		WithConsistencyLevel(level),
		WithRefreshInterval(c.RefreshInterval),
		WithMaxBufferSize(c.MaxBufferSize),
		WithReadHighestFromAllReplicas(c.ReadHighestFromAllReplicas),
	}

	if c.AutoInitializeStorage != nil {
		options = append(options, WithAutoInitializeStorage(*c.AutoInitializeStorage))
	}

	return options, nil
}
