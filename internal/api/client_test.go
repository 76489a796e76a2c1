package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Zacy-Sokach/crmassist/internal/utils"
)

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewClient(url, opts...)
}

func TestSendChatRequestShape(t *testing.T) {
	var got map[string]json.RawMessage
	var contentType, requestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		contentType = r.Header.Get("Content-Type")
		requestID = r.Header.Get("X-Request-ID")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"response":"ok","history":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	history := []ChatMessage{TextMessage(RoleUser, "q1"), TextMessage(RoleAssistant, "a1")}
	if _, err := client.SendChat(context.Background(), "q2", history); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if requestID == "" {
		t.Error("missing X-Request-ID header")
	}
	if string(got["message"]) != `"q2"` {
		t.Errorf("message = %s", got["message"])
	}
	want := `[{"role":"user","content":"q1"},{"role":"assistant","content":"a1"}]`
	if string(got["conversation_history"]) != want {
		t.Errorf("conversation_history = %s, want %s", got["conversation_history"], want)
	}
}

func TestSendChatNilHistorySentAsEmptyArray(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"response":"ok","history":[]}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).SendChat(context.Background(), "hi", nil); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	if string(raw["conversation_history"]) != "[]" {
		t.Errorf("conversation_history = %s, want []", raw["conversation_history"])
	}
}

func TestSendChatSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"response": "3 open leads",
			"history": [
				{"role": "user", "content": "Show my open leads"},
				{"role": "assistant", "content": "3 open leads"}
			],
			"thinking_steps": [
				{"thought": "check CRM", "action": "query", "action_input": "SELECT ...", "observation": "3 rows"},
				{"thought": "summarise"}
			]
		}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).SendChat(context.Background(), "Show my open leads", nil)
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	if resp.Response != "3 open leads" {
		t.Errorf("Response = %q", resp.Response)
	}
	if len(resp.History) != 2 || resp.History[1].Role != RoleAssistant {
		t.Errorf("History = %+v", resp.History)
	}
	if len(resp.ThinkingSteps) != 2 {
		t.Fatalf("ThinkingSteps = %+v", resp.ThinkingSteps)
	}
	if resp.ThinkingSteps[0].ActionInput != "SELECT ..." || resp.ThinkingSteps[1].Action != "" {
		t.Errorf("ThinkingSteps = %+v", resp.ThinkingSteps)
	}
}

func TestSendChatEmptyMessage(t *testing.T) {
	called := false
	doer := utils.DoerFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("unreachable")
	})

	_, err := newTestClient("http://example.invalid", WithDoer(doer)).SendChat(context.Background(), "   ", nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if called {
		t.Error("no request should be made for blank input")
	}
}

func TestSendChatErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantStatus  int
		malformed   bool
	}{
		{
			name:        "detail used verbatim",
			status:      http.StatusServiceUnavailable,
			body:        `{"detail":"Service unavailable"}`,
			wantMessage: "Service unavailable",
			wantStatus:  503,
		},
		{
			name:        "no detail falls back to status",
			status:      http.StatusInternalServerError,
			body:        `oops`,
			wantMessage: "request failed (status 500)",
			wantStatus:  500,
		},
		{
			name:        "empty detail falls back to status",
			status:      http.StatusBadRequest,
			body:        `{"detail":""}`,
			wantMessage: "request failed (status 400)",
			wantStatus:  400,
		},
		{
			name:       "unparsable success body",
			status:     http.StatusOK,
			body:       `{not json`,
			wantStatus: 200,
		},
		{
			name:      "missing history",
			status:    http.StatusOK,
			body:      `{"response":"hi"}`,
			malformed: true,
		},
		{
			name:      "missing response",
			status:    http.StatusOK,
			body:      `{"history":[]}`,
			malformed: true,
		},
		{
			name:      "unknown role",
			status:    http.StatusOK,
			body:      `{"response":"hi","history":[{"role":"system","content":"x"}]}`,
			malformed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).SendChat(context.Background(), "hi", nil)
			if err == nil {
				t.Fatal("expected error")
			}

			if tt.malformed {
				var me *MalformedResponseError
				if !errors.As(err, &me) {
					t.Fatalf("expected MalformedResponseError, got %T: %v", err, err)
				}
				return
			}

			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransportError, got %T: %v", err, err)
			}
			if te.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", te.StatusCode, tt.wantStatus)
			}
			if tt.wantMessage != "" && err.Error() != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestSendChatNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).SendChat(context.Background(), "hi", nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if te.StatusCode != 0 || te.Err == nil {
		t.Errorf("unexpected error fields: %+v", te)
	}
}

func TestSendChatTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).SendChat(ctx, "hi", nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if te.Message != "request timed out" {
		t.Errorf("Message = %q", te.Message)
	}
}

func TestSendChatRetriesGatewayErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"response":"ok","history":[]}`))
	}))
	defer server.Close()

	cfg := utils.DefaultRetryConfig()
	cfg.MaxRetries = 2
	cfg.InitialDelay = 5 * time.Millisecond
	retrying := utils.NewRetryableHTTPClient(server.Client(), cfg)

	resp, err := newTestClient(server.URL, WithDoer(retrying)).SendChat(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	if resp.Response != "ok" || attempts != 2 {
		t.Errorf("resp=%+v attempts=%d", resp, attempts)
	}
}

func TestReadEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/emails":
			if r.URL.Query().Get("limit") != "5" {
				t.Errorf("emails limit = %q", r.URL.Query().Get("limit"))
			}
			w.Write([]byte(`[{"id":"e1","subject":"Renewal","from_email":"a@x.io","to_email":"b@x.io","date":"2024-05-01","body":"hi","extracted_data":{"company":"Acme","deal_value":1200}}]`))
		case "/api/calendar/events":
			if r.URL.Query().Get("max_results") != "20" {
				t.Errorf("max_results = %q", r.URL.Query().Get("max_results"))
			}
			w.Write([]byte(`[{"id":"c1","summary":"Demo","start":"2024-05-02T10:00:00Z","end":"2024-05-02T11:00:00Z"}]`))
		case "/api/interactions":
			w.Write([]byte(`[{"id":1,"company":"Acme","deal_value":500,"interaction_medium":"email"}]`))
		case "/api/interactions/frequency":
			if r.URL.Query().Get("days") != "30" {
				t.Errorf("days = %q", r.URL.Query().Get("days"))
			}
			w.Write([]byte(`[{"date":"2024-05-01","emails":2,"voice_calls":1,"total":3}]`))
		case "/api/interactions/methods":
			w.Write([]byte(`[{"method":"email","contacts":4,"percentage":80}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Not Found"}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	emails, err := client.GetEmails(ctx, 5)
	if err != nil || len(emails) != 1 || emails[0].ExtractedData == nil || emails[0].ExtractedData.Company != "Acme" {
		t.Errorf("GetEmails = %+v, %v", emails, err)
	}
	events, err := client.GetCalendarEvents(ctx, 20)
	if err != nil || len(events) != 1 || events[0].Summary != "Demo" {
		t.Errorf("GetCalendarEvents = %+v, %v", events, err)
	}
	interactions, err := client.GetInteractions(ctx, 50)
	if err != nil || len(interactions) != 1 || interactions[0].DealValue != 500 {
		t.Errorf("GetInteractions = %+v, %v", interactions, err)
	}
	freq, err := client.GetInteractionFrequency(ctx, 30)
	if err != nil || len(freq) != 1 || freq[0].VoiceCalls != 1 {
		t.Errorf("GetInteractionFrequency = %+v, %v", freq, err)
	}
	methods, err := client.GetInteractionMethods(ctx)
	if err != nil || len(methods) != 1 || methods[0].Percentage != 80 {
		t.Errorf("GetInteractionMethods = %+v, %v", methods, err)
	}
}

func TestUpdateCalendarEventUsesPathID(t *testing.T) {
	var body UpdateCalendarEventRequest
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"id":"evt 1","summary":"Moved","start":"s","end":"e"}`))
	}))
	defer server.Close()

	event, err := newTestClient(server.URL).UpdateCalendarEvent(context.Background(), "evt 1", UpdateCalendarEventRequest{EventID: "other", Summary: "Moved"})
	if err != nil {
		t.Fatalf("UpdateCalendarEvent failed: %v", err)
	}
	if path != "/api/calendar/events/evt 1" {
		t.Errorf("path = %q", path)
	}
	if body.EventID != "evt 1" {
		t.Errorf("event_id = %q", body.EventID)
	}
	if event.Summary != "Moved" {
		t.Errorf("event = %+v", event)
	}

	if _, err := newTestClient(server.URL).UpdateCalendarEvent(context.Background(), " ", UpdateCalendarEventRequest{}); err == nil {
		t.Error("expected error for empty event id")
	}
}

func TestNotFoundDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not Found"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetEmails(context.Background(), 10)
	if err == nil || !strings.Contains(err.Error(), "Not Found") {
		t.Errorf("expected Not Found error, got %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	if got := NewClient("").BaseURL(); got != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", got, DefaultBaseURL)
	}
	if got := NewClient("http://crm.local:8001/").BaseURL(); got != "http://crm.local:8001" {
		t.Errorf("BaseURL() = %q", got)
	}
}
