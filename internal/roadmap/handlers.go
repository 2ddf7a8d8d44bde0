package roadmap

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaliguru/kaliguru/internal/auth"
	"github.com/kaliguru/kaliguru/internal/gateway"
	"github.com/kaliguru/kaliguru/internal/server"
	"github.com/kaliguru/kaliguru/pkg/plugin"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodPost, Path: "/generate", Handler: m.handleGenerate},
		{Method: http.MethodGet, Path: "", Handler: m.handleList},
		{Method: http.MethodGet, Path: "/{id}", Handler: m.handleGet},
	}
}

// GenerateRequest is the roadmap generation request body.
type GenerateRequest struct {
	Level      string   `json:"level"`
	Weaknesses []string `json:"weaknesses"`
	Cert       string   `json:"cert"`
}

// handleGenerate produces a study roadmap.
//
//	@Summary	Generate a study roadmap
//	@Tags		roadmap
//	@Accept		json
//	@Produce	json
//	@Param		request	body	GenerateRequest	true	"Target certification and learner profile"
//	@Success	200	{object}	map[string]any
//	@Failure	400	{object}	server.Problem
//	@Failure	429	{object}	server.Problem
//	@Failure	502	{object}	server.Problem
//	@Router		/api/v1/roadmap/generate [post]
func (m *Module) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "Invalid request body", r.URL.Path)
		return
	}
	req.Cert = strings.TrimSpace(req.Cert)
	if req.Cert == "" {
		server.BadRequest(w, "Target certification is required", r.URL.Path)
		return
	}
	if strings.TrimSpace(req.Level) == "" {
		req.Level = "beginner"
	}

	ctx := r.Context()
	apiKey := m.completer.ResolveKey(r.Header.Get("X-Api-Key"))
	call := gateway.CallRequest{
		Messages:  buildMessages(req.Level, req.Cert, req.Weaknesses, m.corpus),
		MaxTokens: m.cfg.MaxTokens,
	}

	// Short model output means a truncated or refused plan, so it gets
	// one more try with a brief pause, mirroring rate-limit handling one
	// level up in the gateway.
	var text string
	for attempt := 1; attempt <= m.cfg.Attempts; attempt++ {
		result := m.completer.Orchestrate(ctx, call, apiKey)
		if result.RateLimited {
			hint := result.RetryAfterHint
			if hint <= 0 {
				hint = 15 * time.Second
			}
			server.RateLimitedRetry(w, "The mentor is handling too many requests. Please try again shortly.", r.URL.Path, hint)
			return
		}
		if result.Success && len(result.Text) >= m.cfg.MinLength && strings.Contains(result.Text, "{") {
			text = result.Text
			break
		}

		m.logger.Warn("roadmap attempt unusable",
			zap.Int("attempt", attempt),
			zap.Bool("success", result.Success),
			zap.Int("length", len(result.Text)),
			zap.String("error_kind", result.ErrorKind),
		)
		if attempt < m.cfg.Attempts {
			if err := m.sleep(ctx, time.Duration(attempt)*m.cfg.RetryWait); err != nil {
				return
			}
		}
	}
	if text == "" {
		server.UpstreamError(w, "AI is taking longer than expected. Please try again.", r.URL.Path)
		return
	}

	doc, err := ParseObject(text)
	if err != nil {
		m.logger.Error("roadmap output unparseable", zap.Error(err))
		server.InternalError(w, "The mentor returned an unreadable plan. Please try again.", r.URL.Path)
		return
	}
	doc = Sanitize(doc, m.corpus)

	if claims := auth.UserFromContext(ctx); claims != nil && m.store != nil {
		content, merr := json.Marshal(doc)
		if merr == nil {
			saved := &Roadmap{
				UserID:     claims.UserID,
				Title:      fmt.Sprintf("%s Roadmap - %s", req.Cert, time.Now().Format("Jan 2, 2006")),
				TargetCert: req.Cert,
				Level:      req.Level,
				Content:    content,
			}
			if serr := m.store.Save(ctx, saved); serr != nil {
				m.logger.Warn("failed to save roadmap", zap.Error(serr))
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"roadmap": doc})
}

// handleList returns the signed-in user's saved roadmaps.
//
//	@Summary	List saved roadmaps
//	@Tags		roadmap
//	@Produce	json
//	@Success	200	{array}		Roadmap
//	@Failure	401	{object}	server.Problem
//	@Router		/api/v1/roadmap [get]
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		unauthorized(w, r.URL.Path)
		return
	}
	if m.store == nil {
		writeJSON(w, http.StatusOK, []Roadmap{})
		return
	}

	roadmaps, err := m.store.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		m.logger.Error("failed to list roadmaps", zap.Error(err))
		server.InternalError(w, "Failed to load roadmaps", r.URL.Path)
		return
	}
	if roadmaps == nil {
		roadmaps = []Roadmap{}
	}
	writeJSON(w, http.StatusOK, roadmaps)
}

// handleGet returns one saved roadmap by ID.
//
//	@Summary	Get a saved roadmap
//	@Tags		roadmap
//	@Produce	json
//	@Param		id	path		string	true	"Roadmap ID"
//	@Success	200	{object}	Roadmap
//	@Failure	401	{object}	server.Problem
//	@Failure	404	{object}	server.Problem
//	@Router		/api/v1/roadmap/{id} [get]
func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		unauthorized(w, r.URL.Path)
		return
	}
	if m.store == nil {
		server.NotFound(w, "Roadmap not found", r.URL.Path)
		return
	}

	roadmap, err := m.store.Get(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		server.NotFound(w, "Roadmap not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, roadmap)
}

func unauthorized(w http.ResponseWriter, instance string) {
	server.WriteProblem(w, server.Problem{
		Type:     server.ProblemTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   "Sign in to access saved roadmaps",
		Instance: instance,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
