package orchestrator

import (
	"context"
	"time"

	"inferd/internal/gemini"
	"inferd/internal/hwprofile"
	"inferd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultPollInterval  = 30 * time.Second
	defaultProbeAttempts = 5
	defaultProbeInterval = 2 * time.Second
)

// Config encapsulates all orchestrator tunables. Intervals and attempt counts
// are explicit so tests can run them at accelerated time.
type Config struct {
	// Catalog of installable models. Empty uses nothing; callers normally pass
	// catalog.Default() or a loaded override.
	Catalog []types.ModelDescriptor
	// CloudModelID is the universal fallback model id. Defaults to the remote
	// client's model.
	CloudModelID string
	// PollInterval is the background retry period for the local daemon while
	// it is unavailable.
	PollInterval time.Duration
	// ProbeAttempts/ProbeInterval bound the re-probe after a user-initiated
	// local start.
	ProbeAttempts int
	ProbeInterval time.Duration
	// Environment is the host capability class. Empty means detect once here.
	Environment types.Environment
	// Profiler supplies the hardware snapshot; nil uses hwprofile.Profile.
	// Injectable for tests.
	Profiler func() types.HardwareProfile
	// Events observes lifecycle transitions. Nil drops them.
	Events EventPublisher
	// BaseContext bounds background work (downloads, polling). Nil means
	// Background; main passes its shutdown context.
	BaseContext context.Context
}

func (c Config) withDefaults() Config {
	if c.CloudModelID == "" {
		c.CloudModelID = gemini.ModelID
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ProbeAttempts <= 0 {
		c.ProbeAttempts = defaultProbeAttempts
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = defaultProbeInterval
	}
	if c.Environment == "" {
		c.Environment = hwprofile.DetectEnvironment()
	}
	if c.Profiler == nil {
		c.Profiler = hwprofile.Profile
	}
	if c.Events == nil {
		c.Events = noopPublisher{}
	}
	if c.BaseContext == nil {
		c.BaseContext = context.Background()
	}
	return c
}
