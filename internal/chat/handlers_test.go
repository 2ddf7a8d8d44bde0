package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kaliguru/kaliguru/internal/auth"
	"github.com/kaliguru/kaliguru/internal/gateway"
)

type fakeCompleter struct {
	result  gateway.CallResult
	chunks  []gateway.StreamChunk
	lastReq gateway.CallRequest
	lastKey string
}

func (f *fakeCompleter) Orchestrate(_ context.Context, req gateway.CallRequest, apiKey string) gateway.CallResult {
	f.lastReq = req
	f.lastKey = apiKey
	return f.result
}

func (f *fakeCompleter) OrchestrateStream(_ context.Context, req gateway.CallRequest, apiKey string) (<-chan gateway.StreamChunk, gateway.CallResult) {
	f.lastReq = req
	f.lastKey = apiKey
	if !f.result.Success {
		return nil, f.result
	}
	ch := make(chan gateway.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, f.result
}

func (f *fakeCompleter) ResolveKey(callerKey string) string {
	if callerKey != "" {
		return callerKey
	}
	return "system-key"
}

func testModule(t *testing.T, fake *fakeCompleter) *Module {
	t.Helper()
	m := New(fake)
	m.logger = zap.NewNop()
	m.cfg = DefaultConfig()
	m.store = testStore(t)
	return m
}

func postMessage(m *Module, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message", strings.NewReader(body))
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	m.handleMessage(rec, req)
	return rec
}

func asUser(userID string) func(*http.Request) {
	return func(r *http.Request) {
		*r = *r.WithContext(auth.ContextWithUser(r.Context(), &auth.Claims{UserID: userID}))
	}
}

func TestHandleMessage_BlankMessage(t *testing.T) {
	m := testModule(t, &fakeCompleter{})

	rec := postMessage(m, `{"message": "   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Message required") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleMessage_NonStreamSuccess(t *testing.T) {
	fake := &fakeCompleter{result: gateway.CallResult{Success: true, Text: "start with networking"}}
	m := testModule(t, fake)

	rec := postMessage(m, `{"message": "where do I start?", "stream": false, "context": {"level": "beginner", "cert": "OSCP"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Text != "start with networking" {
		t.Errorf("resp = %+v", resp)
	}

	system := fake.lastReq.Messages[0]
	if system.Role != "system" || !strings.Contains(system.Content, "Level: beginner") || !strings.Contains(system.Content, "Target: OSCP") {
		t.Errorf("system prompt = %q", system.Content)
	}
	if fake.lastReq.Stream {
		t.Error("stream flag set on a non-stream request")
	}
}

func TestHandleMessage_HistoryMapped(t *testing.T) {
	fake := &fakeCompleter{result: gateway.CallResult{Success: true, Text: "ok"}}
	m := testModule(t, fake)

	postMessage(m, `{"message": "next?", "stream": false, "history": [{"role": "user", "text": "hi"}, {"role": "mentor", "text": "hello"}]}`)

	roles := make([]string, 0, 4)
	for _, msg := range fake.lastReq.Messages {
		roles = append(roles, msg.Role)
	}
	want := []string{"system", "user", "assistant", "user"}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("roles = %v, want %v", roles, want)
		}
	}
}

func TestHandleMessage_HistoryTextCarriedThrough(t *testing.T) {
	fake := &fakeCompleter{result: gateway.CallResult{Success: true, Text: "ok"}}
	m := testModule(t, fake)

	// The UI posts history turns as {role, text}; their content must
	// reach the model, not decode to empty strings.
	postMessage(m, `{"message": "C", "stream": false, "history": [{"role": "user", "text": "A"}, {"role": "mentor", "text": "B"}]}`)

	if len(fake.lastReq.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(fake.lastReq.Messages))
	}
	if got := fake.lastReq.Messages[1].Content; got != "A" {
		t.Errorf("history[0] content = %q, want %q", got, "A")
	}
	if got := fake.lastReq.Messages[2].Content; got != "B" {
		t.Errorf("history[1] content = %q, want %q", got, "B")
	}
}

func TestHandleMessage_RateLimitedReturnsGuidance(t *testing.T) {
	fake := &fakeCompleter{result: gateway.CallResult{
		RateLimited: true,
		ErrorKind:   "rate_limited",
		Message:     "rate limited by upstream",
	}}
	m := testModule(t, fake)

	rec := postMessage(m, `{"message": "help", "stream": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with canned guidance", rec.Code)
	}

	var resp MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Error("busy reply marked as success")
	}
	if !resp.RateLimited || resp.ErrorKind != "rate_limited" {
		t.Errorf("busy flags missing: %+v", resp)
	}
	if !strings.Contains(resp.Text, "TryHackMe") {
		t.Errorf("text = %q, want the canned guidance", resp.Text)
	}
}

func TestHandleMessage_HardFailure(t *testing.T) {
	fake := &fakeCompleter{result: gateway.CallResult{ErrorKind: "auth_error", Message: "bad key"}}
	m := testModule(t, fake)

	rec := postMessage(m, `{"message": "help", "stream": false}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestHandleMessage_StreamRelaysDeltas(t *testing.T) {
	fake := &fakeCompleter{
		result: gateway.CallResult{Success: true},
		chunks: []gateway.StreamChunk{
			{DeltaText: "Hel"},
			{DeltaText: "lo"},
			{IsFinal: true},
		},
	}
	m := testModule(t, fake)

	rec := postMessage(m, `{"message": "hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	helIdx := strings.Index(body, `data: {"delta":"Hel"}`)
	loIdx := strings.Index(body, `data: {"delta":"lo"}`)
	doneIdx := strings.Index(body, "data: [DONE]")
	if helIdx == -1 || loIdx == -1 || doneIdx == -1 {
		t.Fatalf("frames missing from body:\n%s", body)
	}
	if !(helIdx < loIdx && loIdx < doneIdx) {
		t.Errorf("frames out of order:\n%s", body)
	}
	if strings.Contains(body, `"truncated":true`) {
		t.Errorf("clean stream flagged truncated:\n%s", body)
	}
	if !fake.lastReq.Stream {
		t.Error("stream flag not set on upstream request")
	}
}

func TestHandleMessage_StreamTruncationFlagged(t *testing.T) {
	fake := &fakeCompleter{
		result: gateway.CallResult{Success: true},
		chunks: []gateway.StreamChunk{
			{DeltaText: "partial"},
			{IsFinal: true, Err: gateway.ErrStreamTruncated},
		},
	}
	m := testModule(t, fake)

	rec := postMessage(m, `{"message": "hi"}`)
	body := rec.Body.String()
	if !strings.Contains(body, `data: {"delta":"partial"}`) {
		t.Errorf("partial delta missing:\n%s", body)
	}
	if !strings.Contains(body, `data: {"truncated":true}`) {
		t.Errorf("truncation frame missing:\n%s", body)
	}
	if !strings.Contains(body, "data: [DONE]") {
		t.Errorf("terminator missing:\n%s", body)
	}
}

func TestHandleMessage_StreamRateLimitedFallsBackToJSON(t *testing.T) {
	fake := &fakeCompleter{result: gateway.CallResult{RateLimited: true, ErrorKind: "rate_limited"}}
	m := testModule(t, fake)

	rec := postMessage(m, `{"message": "hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want JSON fallback", ct)
	}
	var resp MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.RateLimited {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleMessage_PersistsForSignedInUser(t *testing.T) {
	fake := &fakeCompleter{result: gateway.CallResult{Success: true, Text: "reply text"}}
	m := testModule(t, fake)

	rec := postMessage(m, `{"message": "question", "stream": false}`, asUser("user-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	history, err := m.store.History(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want user turn + mentor turn", len(history))
	}
	if history[0].Role != "user" || history[0].Text != "question" {
		t.Errorf("history[0] = %+v", history[0])
	}
	if history[1].Role != "mentor" || history[1].Text != "reply text" {
		t.Errorf("history[1] = %+v", history[1])
	}
}

func TestHandleMessage_AnonymousNotPersisted(t *testing.T) {
	fake := &fakeCompleter{result: gateway.CallResult{Success: true, Text: "reply"}}
	m := testModule(t, fake)

	postMessage(m, `{"message": "question", "stream": false}`)

	history, err := m.store.History(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("anonymous chat persisted: %+v", history)
	}
}

func TestHandleHistory_RequiresAuth(t *testing.T) {
	m := testModule(t, &fakeCompleter{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/history", nil)
	rec := httptest.NewRecorder()
	m.handleHistory(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleHistoryAndClear(t *testing.T) {
	m := testModule(t, &fakeCompleter{})
	ctx := context.Background()
	if err := m.store.SaveTurn(ctx, "user-1", "user", "hello"); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	histReq := httptest.NewRequest(http.MethodGet, "/api/v1/chat/history", nil)
	asUser("user-1")(histReq)
	histRec := httptest.NewRecorder()
	m.handleHistory(histRec, histReq)

	if histRec.Code != http.StatusOK {
		t.Fatalf("history status = %d", histRec.Code)
	}
	var resp map[string][]StoredMessage
	if err := json.Unmarshal(histRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp["history"]) != 1 {
		t.Fatalf("history = %+v", resp)
	}
	// Entries serialize as {role, text} so the UI can feed them back as
	// history turns unchanged.
	if !strings.Contains(histRec.Body.String(), `"text":"hello"`) {
		t.Errorf("history body = %s", histRec.Body.String())
	}

	clearReq := httptest.NewRequest(http.MethodDelete, "/api/v1/chat/history", nil)
	asUser("user-1")(clearReq)
	clearRec := httptest.NewRecorder()
	m.handleClearHistory(clearRec, clearReq)

	if clearRec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", clearRec.Code)
	}
	remaining, err := m.store.History(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("history after clear = %+v", remaining)
	}
}
