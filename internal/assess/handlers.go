package assess

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kaliguru/kaliguru/internal/auth"
	"github.com/kaliguru/kaliguru/internal/gateway"
	"github.com/kaliguru/kaliguru/internal/roadmap"
	"github.com/kaliguru/kaliguru/internal/server"
	"github.com/kaliguru/kaliguru/pkg/plugin"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodPost, Path: "/questions", Handler: m.handleQuestions},
		{Method: http.MethodPost, Path: "/evaluate", Handler: m.handleEvaluate},
		{Method: http.MethodGet, Path: "/history", Handler: m.handleHistory},
	}
}

// QuestionsRequest selects the assessment difficulty.
type QuestionsRequest struct {
	Mode string `json:"mode"`
}

// handleQuestions returns a generated question set, falling back to the
// curated bank when generation fails for any reason.
//
//	@Summary	Generate assessment questions
//	@Tags		assess
//	@Accept		json
//	@Produce	json
//	@Param		request	body	QuestionsRequest	true	"Assessment mode: beginner or oscp"
//	@Success	200	{object}	map[string][]Question
//	@Failure	400	{object}	server.Problem
//	@Router		/api/v1/assess/questions [post]
func (m *Module) handleQuestions(w http.ResponseWriter, r *http.Request) {
	var req QuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "Invalid request body", r.URL.Path)
		return
	}
	if req.Mode == "" {
		req.Mode = "beginner"
	}
	if req.Mode != "beginner" && req.Mode != "oscp" {
		server.BadRequest(w, "Invalid mode", r.URL.Path)
		return
	}

	questions := m.generateQuestions(r.Context(), req.Mode, r.Header.Get("X-Api-Key"))
	if questions == nil {
		// Any generation failure is invisible to the learner.
		m.logger.Info("serving fallback questions", zap.String("mode", req.Mode))
		questions = FallbackQuestions(req.Mode)
	}
	writeJSON(w, http.StatusOK, map[string][]Question{"questions": questions})
}

// generateQuestions makes one time-boxed generation attempt. Returns
// nil when the output is unusable.
func (m *Module) generateQuestions(ctx context.Context, mode, callerKey string) []Question {
	genCtx, cancel := context.WithTimeout(ctx, m.cfg.QuestionTimeout)
	defer cancel()

	result := m.completer.Orchestrate(genCtx, gateway.CallRequest{
		Messages: []gateway.Message{
			{Role: "system", Content: "You are a helpful assistant. Always respond with valid JSON only, no markdown code blocks or explanations."},
			{Role: "user", Content: questionPrompt(mode)},
		},
		MaxTokens: m.cfg.MaxTokens,
	}, m.completer.ResolveKey(callerKey))
	if !result.Success {
		m.logger.Warn("question generation failed",
			zap.String("mode", mode),
			zap.String("error_kind", result.ErrorKind),
		)
		return nil
	}

	doc, err := roadmap.ParseObject(result.Text)
	if err != nil {
		m.logger.Warn("question generation unparseable", zap.Error(err))
		return nil
	}
	raw, err := json.Marshal(doc["questions"])
	if err != nil {
		return nil
	}
	var questions []Question
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) == 0 {
		m.logger.Warn("question generation returned no usable questions")
		return nil
	}
	return questions
}

// EvaluateRequest carries submitted answers keyed by question index.
type EvaluateRequest struct {
	Answers   map[string]string `json:"answers"`
	Questions []Question        `json:"questions"`
	Mode      string            `json:"mode"`
}

// handleEvaluate grades a completed assessment.
//
//	@Summary	Evaluate assessment answers
//	@Tags		assess
//	@Accept		json
//	@Produce	json
//	@Param		request	body	EvaluateRequest	true	"Answers and the questions they respond to"
//	@Success	200	{object}	map[string]any
//	@Failure	400	{object}	server.Problem
//	@Failure	429	{object}	server.Problem
//	@Failure	502	{object}	server.Problem
//	@Router		/api/v1/assess/evaluate [post]
func (m *Module) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "Invalid request body", r.URL.Path)
		return
	}
	if len(req.Answers) == 0 || len(req.Questions) == 0 {
		server.BadRequest(w, "Answers and questions required", r.URL.Path)
		return
	}
	if req.Mode == "" {
		req.Mode = "beginner"
	}

	apiKey := m.completer.ResolveKey(r.Header.Get("X-Api-Key"))
	result := m.completer.Orchestrate(r.Context(), gateway.CallRequest{
		Messages: []gateway.Message{
			{Role: "system", Content: evaluationPrompt},
			{Role: "user", Content: "Assessment:\n" + answersTranscript(req.Answers, req.Questions)},
		},
		MaxTokens: m.cfg.MaxTokens,
	}, apiKey)

	if result.RateLimited {
		hint := result.RetryAfterHint
		if hint <= 0 {
			hint = 5 * time.Minute
		}
		server.RateLimitedRetry(w, "The AI service is currently overloaded. Please wait a few minutes and try again.", r.URL.Path, hint)
		return
	}
	if !result.Success {
		m.logger.Error("evaluation failed",
			zap.String("error_kind", result.ErrorKind),
			zap.String("message", result.Message),
		)
		server.UpstreamError(w, "Failed to evaluate assessment", r.URL.Path)
		return
	}

	doc, err := roadmap.ParseObject(result.Text)
	if err != nil {
		m.logger.Error("evaluation output unparseable", zap.Error(err))
		server.InternalError(w, "Failed to evaluate assessment", r.URL.Path)
		return
	}

	m.saveResult(r.Context(), req, doc)
	writeJSON(w, http.StatusOK, doc)
}

// saveResult persists the evaluation for a signed-in user.
func (m *Module) saveResult(ctx context.Context, req EvaluateRequest, doc map[string]any) {
	claims := auth.UserFromContext(ctx)
	if claims == nil || m.store == nil {
		return
	}

	result := &Result{
		UserID: claims.UserID,
		Mode:   req.Mode,
	}
	if score, ok := doc["score"].(float64); ok {
		result.Score = score
	}
	if level, ok := doc["level"].(string); ok {
		result.Level = level
	}
	result.Strengths = stringSlice(doc["strengths"])
	result.Weaknesses = stringSlice(doc["weaknesses"])
	if raw, err := json.Marshal(req.Questions); err == nil {
		result.Questions = raw
	}
	if raw, err := json.Marshal(req.Answers); err == nil {
		result.Answers = raw
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.store.Save(saveCtx, result); err != nil {
		m.logger.Warn("failed to save assessment", zap.Error(err))
	}
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// handleHistory returns the signed-in user's past results.
//
//	@Summary	List past assessment results
//	@Tags		assess
//	@Produce	json
//	@Success	200	{array}		Result
//	@Failure	401	{object}	server.Problem
//	@Router		/api/v1/assess/history [get]
func (m *Module) handleHistory(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		server.WriteProblem(w, server.Problem{
			Type:     server.ProblemTypeUnauthorized,
			Title:    "Unauthorized",
			Status:   http.StatusUnauthorized,
			Detail:   "Sign in to view assessment history",
			Instance: r.URL.Path,
		})
		return
	}
	if m.store == nil {
		writeJSON(w, http.StatusOK, []Result{})
		return
	}

	history, err := m.store.History(r.Context(), claims.UserID)
	if err != nil {
		m.logger.Error("failed to list assessments", zap.Error(err))
		server.InternalError(w, "Failed to load assessment history", r.URL.Path)
		return
	}
	if history == nil {
		history = []Result{}
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
