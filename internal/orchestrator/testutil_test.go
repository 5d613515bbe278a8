package orchestrator

import (
	"context"
	"sync"

	"inferd/internal/gemini"
	"inferd/internal/hwprofile"
	"inferd/internal/ollama"
	"inferd/pkg/types"
)

// fakeLocal is a scriptable LocalClient.
type fakeLocal struct {
	mu         sync.Mutex
	up         bool
	installed  []string
	listErr    error
	startErr   error
	startCalls int
	pullErr    error
	pullCalls  int
	// onPull runs before Pull settles, e.g. to register the model.
	onPull func(name string)
	// startBlock, when set, parks Start until the channel is closed.
	startBlock chan struct{}
}

func (f *fakeLocal) CheckStatus(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.up
}

func (f *fakeLocal) ListInstalled(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.installed...), nil
}

func (f *fakeLocal) Start(ctx context.Context) error {
	f.mu.Lock()
	f.startCalls++
	err := f.startErr
	block := f.startBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.up = true
	f.mu.Unlock()
	return nil
}

func (f *fakeLocal) Pull(ctx context.Context, name string, onProgress ollama.ProgressFunc) error {
	f.mu.Lock()
	f.pullCalls++
	err := f.pullErr
	hook := f.onPull
	f.mu.Unlock()

	emit := func(p types.DownloadProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	emit(types.DownloadProgress{Model: name, Percent: 0})
	emit(types.DownloadProgress{Model: name, Percent: 50})
	if hook != nil {
		hook(name)
	}
	if err != nil {
		emit(types.DownloadProgress{Model: name, Percent: 50, Error: err.Error()})
		return err
	}
	emit(types.DownloadProgress{Model: name, Percent: 100, Done: true})
	return nil
}

func (f *fakeLocal) Generate(ctx context.Context, model, prompt string) (string, error) {
	return "local:" + model, nil
}

func (f *fakeLocal) setInstalled(models ...string) {
	f.mu.Lock()
	f.installed = models
	f.mu.Unlock()
}

// fakeCloud is a scriptable CloudClient.
type fakeCloud struct {
	check  gemini.CheckResult
	genErr error
}

func (f *fakeCloud) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	if f.genErr != nil {
		return "", f.genErr
	}
	return "cloud:" + prompt, nil
}

func (f *fakeCloud) TestConnection(ctx context.Context, apiKey string) gemini.CheckResult {
	return f.check
}

// fakeCreds is an in-memory CredentialStore.
type fakeCreds struct {
	mu  sync.Mutex
	key string
}

func (f *fakeCreds) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key, nil
}

func (f *fakeCreds) Save(key string) error {
	f.mu.Lock()
	f.key = key
	f.mu.Unlock()
	return nil
}

func (f *fakeCreds) Present() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key != ""
}

func profileWithGB(gb float64) func() types.HardwareProfile {
	return func() types.HardwareProfile {
		return types.HardwareProfile{
			TotalMemoryGB:     gb,
			AvailableMemoryGB: gb / 2,
			CPUCount:          4,
			OS:                "Linux",
			RecommendedTier:   hwprofile.TierFor(gb),
			CanRun7B:          gb >= 8.0,
			CanRunMini:        gb >= 6.0,
		}
	}
}

func testConfig(gb float64) Config {
	return Config{
		Catalog:     testCatalog(),
		Environment: types.EnvDesktop,
		Profiler:    profileWithGB(gb),
	}
}

func testCatalog() []types.ModelDescriptor {
	return []types.ModelDescriptor{
		{Name: "tinyllama", Tier: hwprofile.TierTiny, MinRAMGB: 4},
		{Name: "phi3:mini", Tier: hwprofile.TierMini, MinRAMGB: 6},
		{Name: "biomistral:7b", Tier: hwprofile.TierMedical7B, MinRAMGB: 8, Medical: true},
	}
}
