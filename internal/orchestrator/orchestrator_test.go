package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"inferd/internal/gemini"
	"inferd/pkg/types"
)

func TestGenerateRoutesLocalWhenReady(t *testing.T) {
	local := &fakeLocal{up: true, installed: []string{"tinyllama"}}
	o := New(local, &fakeCloud{}, &fakeCreds{}, testConfig(4))
	o.Initialize(context.Background())

	resp, err := o.Generate(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Backend != BackendLocal {
		t.Fatalf("backend = %q, want %q", resp.Backend, BackendLocal)
	}
	if resp.Model != "tinyllama" {
		t.Fatalf("model = %q, want the selected model", resp.Model)
	}
}

func TestGenerateRoutesCloudWhenLocalDown(t *testing.T) {
	o := New(&fakeLocal{}, &fakeCloud{}, &fakeCreds{key: "k"}, testConfig(8))
	o.Initialize(context.Background())

	resp, err := o.Generate(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Backend != BackendCloud {
		t.Fatalf("backend = %q, want %q", resp.Backend, BackendCloud)
	}
	if resp.Model != gemini.ModelID {
		t.Fatalf("model = %q, want cloud id", resp.Model)
	}
}

func TestGenerateCloudSelectionOverridesLocalReady(t *testing.T) {
	local := &fakeLocal{up: true, installed: []string{"tinyllama"}}
	o := New(local, &fakeCloud{}, &fakeCreds{key: "k"}, testConfig(4))
	o.Initialize(context.Background())

	o.SelectModel(gemini.ModelID)
	resp, err := o.Generate(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Backend != BackendCloud {
		t.Fatalf("backend = %q: choosing the cloud id must route remotely", resp.Backend)
	}
	if o.ActiveBackend() != BackendCloud {
		t.Fatalf("active backend disagrees with routing")
	}
}

func TestGenerateCloudWithoutCredential(t *testing.T) {
	o := New(&fakeLocal{}, &fakeCloud{}, &fakeCreds{}, testConfig(8))
	o.Initialize(context.Background())

	_, err := o.Generate(context.Background(), "", "hello")
	if !IsCredentialMissing(err) {
		t.Fatalf("err = %v, want credential-missing", err)
	}
}

func TestGenerateModelOverride(t *testing.T) {
	local := &fakeLocal{up: true, installed: []string{"tinyllama", "phi3:mini"}}
	o := New(local, &fakeCloud{}, &fakeCreds{}, testConfig(4))
	o.Initialize(context.Background())

	resp, err := o.Generate(context.Background(), "phi3:mini", "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Model != "phi3:mini" {
		t.Fatalf("model = %q, want the per-request override", resp.Model)
	}
	if got := o.SelectedModel(); got != "tinyllama" {
		t.Fatalf("selected = %q: an override must not change the selection", got)
	}
}

func TestSaveCredentialPromotesRestingState(t *testing.T) {
	creds := &fakeCreds{}
	o := New(&fakeLocal{}, &fakeCloud{}, creds, testConfig(8))
	o.Initialize(context.Background())
	if got := o.Snapshot().State; got != types.BackendLocalUnavailable {
		t.Fatalf("precondition: state = %s", got)
	}

	if err := o.SaveCredential("k"); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap := o.Snapshot()
	if snap.State != types.BackendCloudFallback {
		t.Fatalf("state = %s, want cloud_fallback after storing a key", snap.State)
	}
	if !snap.CredentialPresent {
		t.Fatalf("snapshot does not report the credential")
	}
}

func TestSaveCredentialNoTransitionWhenLocalReady(t *testing.T) {
	local := &fakeLocal{up: true, installed: []string{"tinyllama"}}
	o := New(local, &fakeCloud{}, &fakeCreds{}, testConfig(4))
	o.Initialize(context.Background())

	if err := o.SaveCredential("k"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := o.Snapshot().State; got != types.BackendLocalReady {
		t.Fatalf("state = %s: storing a key must not leave local_ready", got)
	}
}

func TestTestCredentialClassification(t *testing.T) {
	o := New(&fakeLocal{}, &fakeCloud{check: gemini.CheckInvalidCredential}, &fakeCreds{}, testConfig(8))
	if got := o.TestCredential(context.Background(), "bad"); got != gemini.CheckInvalidCredential {
		t.Fatalf("result = %v, want invalid credential", got)
	}
}

func TestStartLocalRecovers(t *testing.T) {
	local := &fakeLocal{installed: []string{"tinyllama"}}
	cfg := testConfig(4)
	cfg.ProbeAttempts = 2
	cfg.ProbeInterval = time.Millisecond
	o := New(local, &fakeCloud{}, &fakeCreds{}, cfg)
	o.Initialize(context.Background())

	if err := o.StartLocal(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := o.Snapshot().State; got != types.BackendLocalReady {
		t.Fatalf("state = %s, want local_ready after a successful start", got)
	}
}

func TestStartLocalFailureKeepsFallback(t *testing.T) {
	local := &fakeLocal{startErr: errors.New("binary missing")}
	o := New(local, &fakeCloud{}, &fakeCreds{key: "k"}, testConfig(8))
	o.Initialize(context.Background())

	err := o.StartLocal(context.Background())
	if !IsStartFailed(err) {
		t.Fatalf("err = %v, want start-failed", err)
	}
	snap := o.Snapshot()
	if snap.State != types.BackendCloudFallback {
		t.Fatalf("state = %s: a failed start must settle back into fallback", snap.State)
	}
	if !snap.Ready {
		t.Fatalf("a failed start must not break readiness")
	}
}

func TestStartLocalNetworkOnlyRefused(t *testing.T) {
	cfg := testConfig(8)
	cfg.Environment = types.EnvNetworkOnly
	local := &fakeLocal{}
	o := New(local, &fakeCloud{}, &fakeCreds{}, cfg)
	o.Initialize(context.Background())

	if err := o.StartLocal(context.Background()); !IsStartFailed(err) {
		t.Fatalf("err = %v, want start-failed in a network-only environment", err)
	}
	if local.startCalls != 0 {
		t.Fatalf("start attempted despite the environment refusing it")
	}
}

func TestStartLocalConcurrentIsNoOp(t *testing.T) {
	local := &fakeLocal{installed: []string{"tinyllama"}, startBlock: make(chan struct{})}
	cfg := testConfig(4)
	cfg.ProbeAttempts = 1
	cfg.ProbeInterval = time.Millisecond
	o := New(local, &fakeCloud{}, &fakeCreds{}, cfg)
	o.Initialize(context.Background())

	done := make(chan error, 1)
	go func() { done <- o.StartLocal(context.Background()) }()

	// Wait for the first start to park inside the daemon launch.
	deadline := time.Now().Add(2 * time.Second)
	for {
		local.mu.Lock()
		calls := local.startCalls
		local.mu.Unlock()
		if calls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first start never reached the daemon")
		}
		time.Sleep(time.Millisecond)
	}

	// A second call while one is outstanding returns without launching.
	if err := o.StartLocal(context.Background()); err != nil {
		t.Fatalf("overlapping start: %v", err)
	}
	local.mu.Lock()
	calls := local.startCalls
	local.mu.Unlock()
	if calls != 1 {
		t.Fatalf("startCalls = %d, want 1", calls)
	}

	close(local.startBlock)
	if err := <-done; err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := o.Snapshot().State; got != types.BackendLocalReady {
		t.Fatalf("state = %s after start", got)
	}
}

func TestPollerPromotesWhenDaemonAppears(t *testing.T) {
	local := &fakeLocal{installed: []string{"tinyllama"}}
	cfg := testConfig(4)
	cfg.PollInterval = 5 * time.Millisecond
	o := New(local, &fakeCloud{}, &fakeCreds{key: "k"}, cfg)
	o.Initialize(context.Background())
	if got := o.Snapshot().State; got != types.BackendCloudFallback {
		t.Fatalf("precondition: state = %s", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.RunPoller(ctx)

	local.mu.Lock()
	local.up = true
	local.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.Snapshot().State == types.BackendLocalReady {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("poller never promoted to local_ready")
}

func TestPollerLeavesLocalReadyAlone(t *testing.T) {
	local := &fakeLocal{up: true, installed: []string{"tinyllama"}}
	cfg := testConfig(4)
	cfg.PollInterval = time.Millisecond
	o := New(local, &fakeCloud{}, &fakeCreds{}, cfg)
	o.Initialize(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go o.RunPoller(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()

	if got := o.Snapshot().State; got != types.BackendLocalReady {
		t.Fatalf("state = %s: poller must not disturb local_ready", got)
	}
}

func TestRefreshHardwareUpdatesProfile(t *testing.T) {
	gb := 4.0
	cfg := testConfig(4)
	cfg.Profiler = func() types.HardwareProfile { return profileWithGB(gb)() }
	o := New(&fakeLocal{up: true}, &fakeCloud{}, &fakeCreds{}, cfg)
	o.Initialize(context.Background())

	gb = 16.0
	p := o.RefreshHardware()
	if p.TotalMemoryGB != 16.0 {
		t.Fatalf("refreshed total = %v", p.TotalMemoryGB)
	}
	if o.Profile().TotalMemoryGB != 16.0 {
		t.Fatalf("stored profile not updated")
	}
}
