package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	RequestID     string
	Body          map[string]any
}

// newMockAPI serves a fixed status and body. The returned func yields the
// last request the server saw.
func newMockAPI(t *testing.T, status int, body string) (*httptest.Server, func() capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	captured := capturedRequest{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Authorization = r.Header.Get("Authorization")
		captured.ContentType = r.Header.Get("Content-Type")
		captured.RequestID = r.Header.Get("X-Request-ID")

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &captured.Body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	return server, func() capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return captured
	}
}

func TestGenerateCommitMessage_Success(t *testing.T) {
	server, lastRequest := newMockAPI(t, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":" fix: bug \n"}}]}`)

	client := NewClient(Options{APIKey: "test-api-key", Endpoint: server.URL + "/v1/chat/completions"})
	message, err := client.GenerateCommitMessage(context.Background(), "the prompt", "test-model")

	require.NoError(t, err)
	assert.Equal(t, "fix: bug", message)

	captured := lastRequest()

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/v1/chat/completions", captured.Path)
	assert.Equal(t, "Bearer test-api-key", captured.Authorization)
	assert.Contains(t, captured.ContentType, "application/json")
	assert.NotEmpty(t, captured.RequestID)

	assert.Equal(t, "test-model", captured.Body["model"])
	messages, ok := captured.Body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	first, ok := messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "the prompt", first["content"])
}

func TestGenerateCommitMessage_EndpointUsedVerbatim(t *testing.T) {
	server, lastRequest := newMockAPI(t, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":"chore: x"}}]}`)

	client := NewClient(Options{APIKey: "k", Endpoint: server.URL + "/custom/generate"})
	_, err := client.GenerateCommitMessage(context.Background(), "p", "m")

	require.NoError(t, err)
	assert.Equal(t, "/custom/generate", lastRequest().Path)
}

func TestGenerateCommitMessage_FirstChoiceWins(t *testing.T) {
	server, _ := newMockAPI(t, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":"feat: one"}},{"message":{"role":"assistant","content":"feat: two"}}]}`)

	client := NewClient(Options{APIKey: "k", Endpoint: server.URL})
	message, err := client.GenerateCommitMessage(context.Background(), "p", "m")

	require.NoError(t, err)
	assert.Equal(t, "feat: one", message)
}

func TestGenerateCommitMessage_EmptyChoices(t *testing.T) {
	server, _ := newMockAPI(t, http.StatusOK, `{"choices":[]}`)

	client := NewClient(Options{APIKey: "k", Endpoint: server.URL})
	message, err := client.GenerateCommitMessage(context.Background(), "p", "m")

	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Empty(t, message)
}

func TestGenerateCommitMessage_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus string
	}{
		{
			name:       "openai style error body",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"message":"invalid key","type":"auth"}}`,
			wantStatus: "401 Unauthorized",
		},
		{
			name:       "plain text body",
			status:     http.StatusBadGateway,
			body:       "upstream unavailable",
			wantStatus: "502 Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newMockAPI(t, tt.status, tt.body)

			client := NewClient(Options{APIKey: "k", Endpoint: server.URL})
			_, err := client.GenerateCommitMessage(context.Background(), "p", "m")

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr), "want *StatusError, got %v", err)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantStatus, statusErr.StatusText())
			assert.Equal(t, tt.body, string(statusErr.Body))
		})
	}
}

func TestGenerateCommitMessage_MalformedJSON(t *testing.T) {
	server, _ := newMockAPI(t, http.StatusOK, `{"choices": [`)

	client := NewClient(Options{APIKey: "k", Endpoint: server.URL})
	_, err := client.GenerateCommitMessage(context.Background(), "p", "m")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call LLM")
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestGenerateCommitMessage_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client := NewClient(Options{APIKey: "k", Endpoint: server.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := client.GenerateCommitMessage(context.Background(), "p", "m")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGenerateCommitMessage_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client := NewClient(Options{APIKey: "k", Endpoint: endpoint, Timeout: time.Second})
	_, err := client.GenerateCommitMessage(context.Background(), "p", "m")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call LLM")
}

func TestGenerateCommitMessage_MissingSettings(t *testing.T) {
	_, err := NewClient(Options{Endpoint: "http://127.0.0.1:1"}).
		GenerateCommitMessage(context.Background(), "p", "m")
	assert.ErrorIs(t, err, errMissingAPIKey)

	_, err = NewClient(Options{APIKey: "k"}).
		GenerateCommitMessage(context.Background(), "p", "m")
	assert.ErrorIs(t, err, errMissingEndpoint)
}

func TestStatusError_StatusTextFallback(t *testing.T) {
	err := &StatusError{StatusCode: http.StatusTooManyRequests}
	assert.Equal(t, "429 Too Many Requests", err.StatusText())
	assert.True(t, strings.HasPrefix(err.Error(), "API returned status 429"))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "sk-1...cdef", maskKey("Bearer sk-1234567890abcdef"))
	assert.Equal(t, "****", maskKey("Bearer short"))
}
