// Package httpapi exposes the daemon's HTTP surface: backend status and
// control, model catalog and downloads, generation, credential management,
// and the session log. Handlers translate classified orchestrator outcomes
// into status codes; raw transport errors never reach the client.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/catalog"
	"inferd/internal/orchestrator"
	"inferd/internal/session"
	"inferd/pkg/types"
)

// Deps carries everything the HTTP layer serves.
type Deps struct {
	Orch     *orchestrator.Orchestrator
	Log      *session.Log
	Threads  *session.ThreadStore
	Governor *session.Governor
}

type server struct {
	orch     *orchestrator.Orchestrator
	log      *session.Log
	threads  *session.ThreadStore
	governor *session.Governor
	started  time.Time
}

// NewMux builds the router with the standard middleware stack.
func NewMux(deps Deps) http.Handler {
	s := &server{
		orch:     deps.Orch,
		log:      deps.Log,
		threads:  deps.Threads,
		governor: deps.Governor,
		started:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/status", s.handleStatus)
	r.Get("/hardware", s.handleHardware)
	r.Post("/hardware/refresh", s.handleHardwareRefresh)
	r.Get("/models", s.handleModels)
	r.Post("/backend/start", s.handleBackendStart)
	r.Post("/models/{name}/pull", s.handlePullStart)
	r.Get("/models/{name}/pull", s.handlePullProgress)
	r.Post("/select", s.handleSelect)
	r.Post("/generate", s.handleGenerate)
	r.Post("/credential", s.handleCredentialSave)
	r.Post("/credential/test", s.handleCredentialTest)
	r.Get("/session/messages", s.handleMessagesList)
	r.Post("/session/messages", s.handleMessageAppend)
	r.Get("/session/threads/{id}", s.handleThreadGet)
	r.Post("/session/threads/{id}", s.handleThreadAdd)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.orch.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("checking"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	trimmed, swept := s.governor.Totals()
	resp := types.StatusResponse{
		Backend:     s.orch.Snapshot(),
		Hardware:    s.orch.Profile(),
		Environment: s.orch.Environment(),
		Session: types.SessionStats{
			Messages:          s.log.Len(),
			Threads:           s.threads.Len(),
			TrimmedTotal:      trimmed,
			SweptThreadsTotal: swept,
		},
		UptimeSeconds:  int64(time.Since(s.started).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleHardware(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Profile())
}

func (s *server) handleHardwareRefresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.RefreshHardware())
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	profile := s.orch.Profile()
	installed := make(map[string]bool)
	for _, name := range s.orch.InstalledModels() {
		installed[name] = true
	}
	entries := make([]types.CatalogEntry, 0)
	for _, d := range s.orch.Catalog() {
		e := types.CatalogEntry{ModelDescriptor: d, Installed: installed[d.Name]}
		if msg, ok := catalog.Advise(profile, d); ok {
			e.Advisory = msg
		}
		entries = append(entries, e)
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{
		Models:          entries,
		RecommendedTier: profile.RecommendedTier,
	})
}

func (s *server) handleBackendStart(w http.ResponseWriter, r *http.Request) {
	joined, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := s.orch.StartLocal(joined); err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *server) handlePullStart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := catalog.ByName(s.orch.Catalog(), name); !ok {
		writeJSONError(w, http.StatusNotFound, "unknown model: "+name)
		return
	}
	if err := s.orch.Download(name); err != nil {
		switch {
		case orchestrator.IsServiceNotRunning(err):
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		case orchestrator.IsDownloadInFlight(err):
			writeJSONError(w, http.StatusConflict, err.Error())
		default:
			writeJSONError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	IncrementDownloadStart()
	writeJSON(w, http.StatusAccepted, types.PullAccepted{Model: name, Status: "started"})
}

func (s *server) handlePullProgress(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := s.orch.Progress(name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no download in progress for "+name)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	s.orch.SelectModel(req.Model)
	writeJSON(w, http.StatusOK, map[string]string{"model": req.Model})
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	joined, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	resp, err := s.orch.Generate(joined, req.Model, req.Prompt)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := http.StatusBadGateway
		if orchestrator.IsCredentialMissing(err) {
			status = http.StatusConflict
		}
		writeJSONError(w, status, err.Error())
		logGenerate(r, lvl, status, "", time.Since(start), err)
		return
	}
	IncrementGenerate(resp.Backend)
	writeJSON(w, http.StatusOK, resp)
	logGenerate(r, lvl, http.StatusOK, resp.Backend, time.Since(start), nil)
}

func (s *server) handleCredentialSave(w http.ResponseWriter, r *http.Request) {
	var req types.CredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.orch.SaveCredential(strings.TrimSpace(req.APIKey)); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not store the credential")
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *server) handleCredentialTest(w http.ResponseWriter, r *http.Request) {
	var req types.CredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	joined, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	result := s.orch.TestCredential(joined, strings.TrimSpace(req.APIKey))
	writeJSON(w, http.StatusOK, types.CredentialCheckResponse{Result: result.String()})
}

func (s *server) handleMessagesList(w http.ResponseWriter, r *http.Request) {
	msgs := s.log.Messages()
	if msgs == nil {
		msgs = []session.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *server) handleMessageAppend(w http.ResponseWriter, r *http.Request) {
	var req types.AppendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Role {
	case session.RoleUser, session.RoleAssistant, session.RoleSuggestion:
	default:
		writeJSONError(w, http.StatusBadRequest, "role must be user, assistant or suggestion")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSONError(w, http.StatusBadRequest, "content is required")
		return
	}
	suggestions := make([]session.Suggestion, 0, len(req.Suggestions))
	for _, sg := range req.Suggestions {
		suggestions = append(suggestions, session.Suggestion{Test: sg.Test, Rationale: sg.Rationale})
	}
	msg := s.log.Append(req.Role, req.Content, suggestions...)
	s.governor.NotifyAppend()
	writeJSON(w, http.StatusCreated, msg)
}

func (s *server) handleThreadGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]any{"notes": s.threads.Get(id)})
}

func (s *server) handleThreadAdd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	if !messageExists(s.log, id) {
		writeJSONError(w, http.StatusNotFound, "unknown message: "+id)
		return
	}
	writeJSON(w, http.StatusCreated, s.threads.Add(id, req.Text))
}

func messageExists(l *session.Log, id string) bool {
	for _, m := range l.Messages() {
		if m.ID == id {
			return true
		}
	}
	return false
}

// decodeJSON enforces content type and body limits, then decodes into v.
// Writes the error response itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
