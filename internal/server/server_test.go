package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/tenant"
)

type stubInserter struct {
	inserted   int
	err        error
	lastTenant string
	lastTexts  []string
}

func (s *stubInserter) Insert(_ context.Context, tenantID string, texts []string) (int, error) {
	s.lastTenant = tenantID
	s.lastTexts = texts
	return s.inserted, s.err
}

type stubAnswerer struct {
	response    string
	err         error
	lastTenant  string
	lastQuery   string
	lastContext string
}

func (s *stubAnswerer) Answer(_ context.Context, tenantID, query, conversationContext string) (string, error) {
	s.lastTenant = tenantID
	s.lastQuery = query
	s.lastContext = conversationContext
	return s.response, s.err
}

func setupTestServer(t *testing.T) (*Server, *stubInserter, *stubAnswerer) {
	t.Helper()
	ins := &stubInserter{}
	ans := &stubAnswerer{}
	server, err := NewServer(ins, ans, logging.NewNop(), nil)
	require.NoError(t, err)
	return server, ins, ans
}

func postJSON(t *testing.T, server *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{Host: "localhost", Port: 8081}
		server, err := NewServer(&stubInserter{}, &stubAnswerer{}, logging.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.echo)
		assert.Equal(t, cfg, server.config)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(&stubInserter{}, &stubAnswerer{}, logging.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 8081, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(&stubInserter{}, &stubAnswerer{}, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when inserter is nil", func(t *testing.T) {
		_, err := NewServer(nil, &stubAnswerer{}, logging.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "inserter cannot be nil")
	})

	t.Run("returns error when answerer is nil", func(t *testing.T) {
		_, err := NewServer(&stubInserter{}, nil, logging.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "answerer cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	server, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleInsertDocuments(t *testing.T) {
	t.Run("inserts string documents", func(t *testing.T) {
		server, ins, _ := setupTestServer(t)
		ins.inserted = 2

		rec := postJSON(t, server, "/api/v1/documents", map[string]any{
			"tenant_id": "alice",
			"documents": []map[string]any{
				{"text": "knee pain reported"},
				{"text": "follow-up scheduled"},
			},
		})

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp InsertResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Inserted)
		assert.Equal(t, "alice", ins.lastTenant)
		assert.Equal(t, []string{"knee pain reported", "follow-up scheduled"}, ins.lastTexts)
	})

	t.Run("serializes structured documents", func(t *testing.T) {
		server, ins, _ := setupTestServer(t)
		ins.inserted = 1

		rec := postJSON(t, server, "/api/v1/documents", map[string]any{
			"tenant_id": "alice",
			"documents": []map[string]any{
				{"text": map[string]any{"condition": "knee pain", "severity": "mild"}},
			},
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, ins.lastTexts, 1)
		assert.Contains(t, ins.lastTexts[0], `"condition": "knee pain"`)
		assert.Contains(t, ins.lastTexts[0], `"severity": "mild"`)
	})

	t.Run("rejects missing tenant_id", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/documents", map[string]any{
			"documents": []map[string]any{{"text": "doc"}},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "tenant_id")
	})

	t.Run("rejects empty documents", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/documents", map[string]any{
			"tenant_id": "alice",
			"documents": []map[string]any{},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "documents")
	})

	t.Run("rejects empty text", func(t *testing.T) {
		server, inserter, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/documents", map[string]any{
			"tenant_id": "alice",
			"documents": []map[string]any{{"text": ""}},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "must not be empty")
		assert.Empty(t, inserter.lastTenant)
	})

	t.Run("rejects non-string non-object text", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/documents", map[string]any{
			"tenant_id": "alice",
			"documents": []map[string]any{{"text": 42}},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "string or an object")
	})

	t.Run("rejects invalid body", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents",
			bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps invalid tenant id to 400", func(t *testing.T) {
		server, ins, _ := setupTestServer(t)
		ins.err = fmt.Errorf("ensuring state: %w", tenant.ErrInvalidTenant)

		rec := postJSON(t, server, "/api/v1/documents", map[string]any{
			"tenant_id": "../escape",
			"documents": []map[string]any{{"text": "doc"}},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid tenant_id")
	})

	t.Run("maps insert failure to 500", func(t *testing.T) {
		server, ins, _ := setupTestServer(t)
		ins.err = fmt.Errorf("store unavailable")

		rec := postJSON(t, server, "/api/v1/documents", map[string]any{
			"tenant_id": "alice",
			"documents": []map[string]any{{"text": "doc"}},
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		// Internal detail must not leak to the client.
		assert.NotContains(t, rec.Body.String(), "store unavailable")
	})
}

func TestHandleChat(t *testing.T) {
	t.Run("returns answer", func(t *testing.T) {
		server, _, ans := setupTestServer(t)
		ans.response = "your latest record is knee pain"

		rec := postJSON(t, server, "/api/v1/chat", map[string]any{
			"tenant_id":            "alice",
			"query":                "what is my latest health issue?",
			"conversation_context": "prior turns",
		})

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "your latest record is knee pain", resp.Response)
		assert.Equal(t, "alice", ans.lastTenant)
		assert.Equal(t, "what is my latest health issue?", ans.lastQuery)
		assert.Equal(t, "prior turns", ans.lastContext)
	})

	t.Run("rejects missing tenant_id", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/chat", map[string]any{"query": "hello"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "tenant_id")
	})

	t.Run("rejects missing query", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/chat", map[string]any{"tenant_id": "alice"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "query")
	})

	t.Run("maps answer failure to 500", func(t *testing.T) {
		server, _, ans := setupTestServer(t)
		ans.err = fmt.Errorf("generator down")

		rec := postJSON(t, server, "/api/v1/chat", map[string]any{
			"tenant_id": "alice",
			"query":     "hello",
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "generator down")
	})
}

func TestNormalizeDocumentText(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"string", `"plain text"`, "plain text", false},
		{"empty string rejected", `""`, "", true},
		{"whitespace-only passes through", `"   "`, "   ", false},
		{"object", `{"a":1}`, "{\n  \"a\": 1\n}", false},
		{"number", `42`, "", true},
		{"array", `[1,2]`, "", true},
		{"missing", ``, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeDocumentText(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
