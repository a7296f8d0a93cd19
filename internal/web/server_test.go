package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finqa/internal/domain"
	"finqa/internal/service"
)

type fakePort struct {
	out   service.Outcome
	calls int
}

func (f *fakePort) Ask(context.Context, string, string) service.Outcome {
	f.calls++
	return f.out
}

func do(t *testing.T, s *Server, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealth(t *testing.T) {
	resp, body := do(t, NewServer(&fakePort{}, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestForm_Renders(t *testing.T) {
	resp, body := do(t, NewServer(&fakePort{}, nil), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `name="url"`)
	assert.Contains(t, body, `name="question"`)
}

func TestAskForm_MissingFields(t *testing.T) {
	port := &fakePort{}
	resp, body := do(t, NewServer(port, nil), formRequest(url.Values{"url": {"https://example.com"}}))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, missingInput)
	assert.Zero(t, port.calls)
}

func TestAskForm_Answer(t *testing.T) {
	port := &fakePort{out: service.Outcome{
		Answer:  domain.Answer{Text: "Gold hit <record> highs."},
		Preview: "Gold prices...",
	}}
	resp, body := do(t, NewServer(port, nil), formRequest(url.Values{
		"url":      {"https://example.com/gold"},
		"question": {"What did gold do?"},
	}))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Gold hit &lt;record&gt; highs.")
	assert.Contains(t, body, "Gold prices...")
	assert.Contains(t, body, `value="What did gold do?"`)
	assert.Equal(t, 1, port.calls)
}

func TestAskForm_FetchError(t *testing.T) {
	port := &fakePort{out: service.Outcome{
		Err: domain.NewError(domain.KindFetch, "failed to fetch article", nil),
	}}
	resp, body := do(t, NewServer(port, nil), formRequest(url.Values{
		"url":      {"https://example.com/missing"},
		"question": {"q"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Error: failed to fetch article")
}

func TestAskJSON(t *testing.T) {
	port := &fakePort{out: service.Outcome{
		RequestID: "req-1",
		Answer:    domain.Answer{Text: "Yes.", Context: []string{"chunk one"}},
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/ask",
		strings.NewReader(`{"url":"https://example.com","question":"Is it?"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, body := do(t, NewServer(port, nil), req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got askResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "Yes.", got.Answer)
	assert.Equal(t, []string{"chunk one"}, got.Context)
	assert.Empty(t, got.Error)
}

func TestAskJSON_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		out    service.Outcome
		status int
		kind   string
	}{
		{name: "invalid json", body: `{`, status: http.StatusBadRequest},
		{name: "missing question", body: `{"url":"u"}`, status: http.StatusBadRequest},
		{
			name:   "generate failure",
			body:   `{"url":"u","question":"q"}`,
			out:    service.Outcome{Err: domain.NewError(domain.KindGenerate, "language model request failed", errors.New("quota"))},
			status: http.StatusBadGateway,
			kind:   "generate",
		},
		{
			name:   "index failure",
			body:   `{"url":"u","question":"q"}`,
			out:    service.Outcome{Err: domain.NewError(domain.KindIndex, "failed to create embeddings/index", nil)},
			status: http.StatusInternalServerError,
			kind:   "index",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, body := do(t, NewServer(&fakePort{out: tt.out}, nil), req)

			assert.Equal(t, tt.status, resp.StatusCode)
			var got askResponse
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			assert.NotEmpty(t, got.Error)
			assert.Equal(t, tt.kind, got.Kind)
		})
	}
}
