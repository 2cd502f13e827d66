package container

import (
	"fmt"

	"go-omr-engine/internal/config"
	"go-omr-engine/internal/logger"
	"go-omr-engine/internal/observer"
	"go-omr-engine/pkg/keys"
	"go-omr-engine/pkg/omr"
	"go-omr-engine/pkg/storage"
)

// fetchCacheEntries bounds how many downloaded sheets stay in memory
// during a batch run over remote URLs.
const fetchCacheEntries = 128

// Overrides carries command-line values that take precedence over the
// environment configuration. Zero values mean "use the configured default".
type Overrides struct {
	KeyFile     string
	ArtifactDir string
	Strict      bool
}

// Container holds the assembled application dependencies.
type Container struct {
	config  *config.Config
	keys    keys.Provider
	sink    storage.ArtifactSink
	fetcher storage.SheetFetcher
	metrics *observer.MetricsObserver
	engine  *omr.Engine
}

// NewContainer loads configuration from the environment, applies the
// overrides, and builds the full dependency graph.
func NewContainer(ov Overrides) (*Container, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	opts := cfg.Options
	if ov.Strict {
		opts.StrictGrid = true
	}

	c := &Container{
		config:  cfg,
		metrics: observer.NewMetricsObserver(),
	}

	// A key file given on the command line must load; the configured
	// default is optional so unkeyed runs still produce answer maps.
	keyFile := ov.KeyFile
	explicit := keyFile != ""
	if keyFile == "" {
		keyFile = cfg.AnswerKeyFile
	}
	if keyFile != "" {
		provider, err := keys.LoadFile(keyFile)
		switch {
		case err == nil:
			c.keys = provider
		case explicit:
			return nil, fmt.Errorf("loading answer keys: %w", err)
		default:
			logger.WithError(err).Warn("answer key file not loaded, scoring disabled")
		}
	}

	artifactDir := ov.ArtifactDir
	if artifactDir == "" {
		artifactDir = cfg.ArtifactDir
	}
	switch {
	case cfg.AzureConfigured():
		sink, err := storage.NewAzureSink(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainer)
		if err != nil {
			return nil, fmt.Errorf("configuring azure sink: %w", err)
		}
		c.sink = sink
	case artifactDir != "":
		c.sink = &storage.FileSink{Dir: artifactDir}
	}

	c.fetcher = storage.NewCachingFetcher(storage.NewHTTPSheetFetcher(), fetchCacheEntries)

	c.engine = omr.New(omr.Config{
		Options: opts,
		Keys:    c.keys,
		Sink:    c.sink,
		Fetcher: c.fetcher,
		Observers: []observer.Observer{
			observer.NewLoggingObserver(nil),
			c.metrics,
		},
	})
	return c, nil
}

// Engine returns the assembled processing engine.
func (c *Container) Engine() *omr.Engine {
	return c.engine
}

// Config returns the loaded configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Metrics returns the per-run counters collected so far.
func (c *Container) Metrics() map[string]interface{} {
	return c.metrics.GetMetrics()
}
