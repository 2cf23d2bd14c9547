// File: internal/llmclient/llmclient_test.go
package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xKony/x-automate/api/schemas"
	"github.com/xKony/x-automate/internal/config"
)

func testLLMConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Provider:          config.ProviderMistral,
		Model:             "mistral-small-latest",
		APIKey:            "test-key",
		Endpoint:          endpoint,
		APITimeout:        5 * time.Second,
		Temperature:       0.8,
		MaxTokens:         256,
		RequestsPerMinute: 600,
	}
}

func TestMistralClient_Generate_Success(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  a thoughtful reply  "},"finish_reason":"stop"}],"usage":{"prompt_tokens":20,"completion_tokens":8,"total_tokens":28}}`))
	}))
	defer server.Close()

	client, err := NewMistralClient(testLLMConfig(server.URL), "system prompt", zap.NewNop())
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), schemas.GenerationRequest{
		Intent:  schemas.IntentReply,
		Context: "original post text",
	})
	require.NoError(t, err)
	assert.Equal(t, "a thoughtful reply", got, "content should be trimmed")
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestMistralClient_Generate_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limited"}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"second try"}}]}`))
	}))
	defer server.Close()

	client, err := NewMistralClient(testLLMConfig(server.URL), "system prompt", zap.NewNop())
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), schemas.GenerationRequest{Intent: schemas.IntentReply})
	require.NoError(t, err)
	assert.Equal(t, "second try", got)
	assert.Equal(t, int32(2), calls.Load(), "the 429 should be retried exactly once before succeeding")
}

func TestMistralClient_Generate_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid model"}`))
	}))
	defer server.Close()

	client, err := NewMistralClient(testLLMConfig(server.URL), "system prompt", zap.NewNop())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), schemas.GenerationRequest{Intent: schemas.IntentReply})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load(), "client errors must not be retried")
}

func TestMistralClient_Generate_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"choices":[{"message":{"content":"too late"}}]}`))
	}))
	defer server.Close()

	client, err := NewMistralClient(testLLMConfig(server.URL), "system prompt", zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Generate(ctx, schemas.GenerationRequest{Intent: schemas.IntentReply})
	require.Error(t, err)
}

func TestNewMistralClient_RequiresAPIKey(t *testing.T) {
	cfg := testLLMConfig("")
	cfg.APIKey = ""
	_, err := NewMistralClient(cfg, "prompt", zap.NewNop())
	require.Error(t, err)
}

func TestGeminiClient_Generate_Success(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"a generated quote"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":15,"candidatesTokenCount":6}}`))
	}))
	defer server.Close()

	cfg := testLLMConfig(server.URL)
	cfg.Provider = config.ProviderGemini
	cfg.Model = "gemini-2.0-flash"

	client, err := NewGeminiClient(cfg, "system prompt", zap.NewNop())
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), schemas.GenerationRequest{
		Intent:  schemas.IntentQuote,
		Context: "original post",
	})
	require.NoError(t, err)
	assert.Equal(t, "a generated quote", got)
	assert.Contains(t, gotPath, "gemini-2.0-flash:generateContent")
	assert.Contains(t, gotPath, "key=test-key")
}

func TestGeminiClient_Generate_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	cfg := testLLMConfig(server.URL)
	cfg.Provider = config.ProviderGemini

	client, err := NewGeminiClient(cfg, "system prompt", zap.NewNop())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), schemas.GenerationRequest{Intent: schemas.IntentReply})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestLoadPrompt(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads and trims the prompt", func(t *testing.T) {
		path := filepath.Join(dir, "prompt.txt")
		require.NoError(t, os.WriteFile(path, []byte("\n  You are a casual poster.  \n"), 0o644))

		got, err := LoadPrompt(path)
		require.NoError(t, err)
		assert.Equal(t, "You are a casual poster.", got)
	})

	t.Run("rejects an empty prompt", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o644))

		_, err := LoadPrompt(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPrompt(filepath.Join(dir, "nope.txt"))
		require.Error(t, err)
	})
}

func TestUserPrompt_IntentShapesInstruction(t *testing.T) {
	reply := userPrompt(schemas.GenerationRequest{Intent: schemas.IntentReply, Context: "hello"})
	assert.True(t, strings.HasPrefix(reply, "Write a short reply"))
	assert.Contains(t, reply, "hello")

	quote := userPrompt(schemas.GenerationRequest{Intent: schemas.IntentQuote, Context: "hello"})
	assert.True(t, strings.HasPrefix(quote, "Write a short quote-post"))

	post := userPrompt(schemas.GenerationRequest{Intent: schemas.IntentPost})
	assert.Equal(t, "Write a short original post.", post)
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("prompt"), 0o644))

	cfg := testLLMConfig("")
	cfg.Provider = "openai"
	cfg.PromptFile = path

	_, err := NewGenerator(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM provider")
}

type stubGenerator struct {
	calls atomic.Int32
}

func (s *stubGenerator) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	s.calls.Add(1)
	return "ok", nil
}

func TestLimitedGenerator_WaitsForBudget(t *testing.T) {
	stub := &stubGenerator{}
	gen := &limitedGenerator{
		inner:   stub,
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
	}

	// First call consumes the single burst token; the second has to wait for
	// the refill, so both succeeding proves Wait is exercised.
	start := time.Now()
	for i := 0; i < 2; i++ {
		got, err := gen.Generate(context.Background(), schemas.GenerationRequest{Intent: schemas.IntentPost})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, int32(2), stub.calls.Load())
}
