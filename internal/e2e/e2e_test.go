package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"inferd/internal/catalog"
	"inferd/internal/credstore"
	"inferd/internal/gemini"
	"inferd/internal/httpapi"
	"inferd/internal/ollama"
	"inferd/internal/orchestrator"
	"inferd/internal/session"
	"inferd/pkg/types"
)

// fakeOllama emulates the local daemon's HTTP API.
type fakeOllama struct {
	mu     sync.Mutex
	models []string
}

func (f *fakeOllama) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		type tag struct {
			Name string `json:"name"`
		}
		tags := make([]tag, 0, len(f.models))
		for _, m := range f.models {
			tags = append(tags, tag{Name: m})
		}
		json.NewEncoder(w).Encode(map[string]any{"models": tags})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{"response": "answer from " + req.Model, "done": true})
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.models = append(f.models, req.Name)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	})
	return mux
}

// fakeGemini emulates the cloud completion endpoint.
func fakeGemini(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "invalid key"}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "cloud answer"}}}},
			},
		})
	}))
}

type stack struct {
	srv    *httptest.Server
	daemon *fakeOllama
	orch   *orchestrator.Orchestrator
}

func newStack(t *testing.T, daemonUp bool, installed []string) *stack {
	t.Helper()
	daemon := &fakeOllama{models: installed}
	var daemonURL string
	if daemonUp {
		ds := httptest.NewServer(daemon.handler())
		t.Cleanup(ds.Close)
		daemonURL = ds.URL
	} else {
		// A closed server yields connection refused, like a stopped daemon.
		ds := httptest.NewServer(daemon.handler())
		daemonURL = ds.URL
		ds.Close()
	}
	gs := fakeGemini(t)
	t.Cleanup(gs.Close)

	local := ollama.New(ollama.Config{
		BaseURL:      daemonURL,
		ProbeTimeout: 500 * time.Millisecond,
		SettleDelay:  time.Millisecond,
		PullTick:     time.Millisecond,
	})
	cloud := gemini.New(gemini.Config{Endpoint: gs.URL})
	creds := credstore.New(filepath.Join(t.TempDir(), "credentials.json"))

	orch := orchestrator.New(local, cloud, creds, orchestrator.Config{
		Catalog:     catalog.Default(),
		Environment: types.EnvDesktop,
		Profiler: func() types.HardwareProfile {
			return types.HardwareProfile{TotalMemoryGB: 8, CPUCount: 4, OS: "Linux", RecommendedTier: "medical-7b"}
		},
	})
	orch.Initialize(context.Background())

	lg := session.NewLog()
	th := session.NewThreadStore()
	gov := session.NewGovernor(lg, th, session.GovernorConfig{})
	mux := httpapi.NewMux(httpapi.Deps{Orch: orch, Log: lg, Threads: th, Governor: gov})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &stack{srv: srv, daemon: daemon, orch: orch}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, in, out any) int {
	t.Helper()
	b, _ := json.Marshal(in)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestE2E_LocalPath(t *testing.T) {
	s := newStack(t, true, []string{"biomistral:7b"})

	var st types.StatusResponse
	if code := getJSON(t, s.srv.URL+"/status", &st); code != http.StatusOK {
		t.Fatalf("status code=%d", code)
	}
	if st.Backend.State != types.BackendLocalReady {
		t.Fatalf("state = %s", st.Backend.State)
	}
	if st.Backend.SelectedModel != "biomistral:7b" {
		t.Fatalf("selected = %s", st.Backend.SelectedModel)
	}

	var gen types.GenerateResponse
	if code := postJSON(t, s.srv.URL+"/generate", types.GenerateRequest{Prompt: "hello"}, &gen); code != http.StatusOK {
		t.Fatalf("generate code=%d", code)
	}
	if gen.Backend != "local" || gen.Response != "answer from biomistral:7b" {
		t.Fatalf("generate = %+v", gen)
	}
}

func TestE2E_CloudFallbackPath(t *testing.T) {
	s := newStack(t, false, nil)

	var st types.StatusResponse
	getJSON(t, s.srv.URL+"/status", &st)
	if st.Backend.State != types.BackendLocalUnavailable {
		t.Fatalf("state = %s", st.Backend.State)
	}

	// No credential yet: generation is rejected with guidance.
	if code := postJSON(t, s.srv.URL+"/generate", types.GenerateRequest{Prompt: "hello"}, nil); code != http.StatusConflict {
		t.Fatalf("generate without key code=%d", code)
	}

	// Test then store a key; the machine settles into cloud fallback.
	var check types.CredentialCheckResponse
	postJSON(t, s.srv.URL+"/credential/test", types.CredentialRequest{APIKey: "bad"}, &check)
	if check.Result != "invalid_credential" {
		t.Fatalf("check = %q", check.Result)
	}
	var snap types.BackendStatus
	postJSON(t, s.srv.URL+"/credential", types.CredentialRequest{APIKey: "good-key"}, &snap)
	if snap.State != types.BackendCloudFallback {
		t.Fatalf("state after key = %s", snap.State)
	}

	var gen types.GenerateResponse
	if code := postJSON(t, s.srv.URL+"/generate", types.GenerateRequest{Prompt: "hello"}, &gen); code != http.StatusOK {
		t.Fatalf("generate code=%d", code)
	}
	if gen.Backend != "cloud" || gen.Response != "cloud answer" {
		t.Fatalf("generate = %+v", gen)
	}
}

func TestE2E_DownloadLifecycle(t *testing.T) {
	s := newStack(t, true, nil)

	if code := postJSON(t, s.srv.URL+"/models/tinyllama/pull", nil, nil); code != http.StatusAccepted {
		t.Fatalf("pull code=%d", code)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, inFlight := s.orch.Progress("tinyllama"); !inFlight {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("download never settled")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var ms types.ModelsResponse
	getJSON(t, s.srv.URL+"/models", &ms)
	for _, m := range ms.Models {
		if m.Name == "tinyllama" && !m.Installed {
			t.Fatalf("tinyllama not reported installed after pull")
		}
	}
}

func TestE2E_SessionFlow(t *testing.T) {
	s := newStack(t, true, []string{"tinyllama"})

	var msg session.Message
	if code := postJSON(t, s.srv.URL+"/session/messages", types.AppendMessageRequest{Role: "user", Content: "compare groups"}, &msg); code != http.StatusCreated {
		t.Fatalf("append code=%d", code)
	}
	var note session.Note
	if code := postJSON(t, s.srv.URL+"/session/threads/"+msg.ID, map[string]string{"text": "sample size?"}, &note); code != http.StatusCreated {
		t.Fatalf("thread code=%d", code)
	}

	var st types.StatusResponse
	getJSON(t, s.srv.URL+"/status", &st)
	if st.Session.Messages != 1 || st.Session.Threads != 1 {
		t.Fatalf("session stats = %+v", st.Session)
	}
}
