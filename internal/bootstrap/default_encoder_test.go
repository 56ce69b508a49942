package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	"github.com/yanqian/faq-matcher/internal/infra/config"
)

// miniLMFixture holds sentence vectors standing in for all-MiniLM-L6-v2 output.
var miniLMFixture = map[string][]float32{
	"What is anxiety?":             {0.9, 0.1, 0.1, 0},
	"How do I sleep better?":       {0.1, 0.9, 0.2, 0},
	"I can't fall asleep at night": {0.15, 0.8, 0.3, 0.1},
	"asdkjasdkj random text":       {0.05, 0.05, -0.3, 0.95},
}

type teiFixture struct {
	mu      sync.Mutex
	batches [][]string
}

func (f *teiFixture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/embed" {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Inputs []string `json:"inputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.batches = append(f.batches, req.Inputs)
	f.mu.Unlock()

	out := make([][]float32, len(req.Inputs))
	for i, text := range req.Inputs {
		vec, ok := miniLMFixture[text]
		if !ok {
			http.Error(w, "unexpected input "+text, http.StatusUnprocessableEntity)
			return
		}
		out[i] = vec
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func TestBuildMatcher_DefaultEncoderEndToEnd(t *testing.T) {
	fixture := &teiFixture{}
	srv := httptest.NewServer(fixture)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "faq.csv")
	require.NoError(t, os.WriteFile(corpusPath, []byte("Question_ID,Question,Answer\n"+
		"1,What is anxiety?,Anxiety is...\n"+
		"2,How do I sleep better?,Try a consistent...\n"), 0o600))
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("corpus:\n  path: "+corpusPath+"\nencoder:\n  baseUrl: "+srv.URL+"\n"), 0o600))
	t.Setenv("CONFIG_PATH", configPath)
	t.Setenv("ENV_FILE", "")
	t.Setenv("ENCODER_KIND", "")
	t.Setenv("ENCODER_BASE_URL", "")
	t.Setenv("EMBEDDING_CACHE_KIND", "")
	t.Setenv("CORPUS_KIND", "")
	t.Setenv("CORPUS_PATH", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.EncoderTEI, cfg.Encoder.Kind)

	matcher, cleanup, err := BuildMatcher(context.Background(), cfg, testLogger())
	defer cleanup()
	require.NoError(t, err)
	require.Equal(t, 2, matcher.Size())
	require.Equal(t, [][]string{{"What is anxiety?", "How do I sleep better?"}}, fixture.batches)

	result := matcher.Match(context.Background(), "I can't fall asleep at night")
	require.Equal(t, faq.OutcomeMatched, result.Outcome)
	require.NotNil(t, result.MatchedQuestion)
	require.Equal(t, "How do I sleep better?", *result.MatchedQuestion)
	require.Equal(t, "Try a consistent...", result.Answer)
	require.GreaterOrEqual(t, result.Score, faq.DefaultThreshold)

	result = matcher.Match(context.Background(), "asdkjasdkj random text")
	require.Equal(t, faq.OutcomeNoMatch, result.Outcome)
	require.Nil(t, result.MatchedQuestion)
	require.Equal(t, faq.DefaultFallbackMessage, result.Answer)
	require.Less(t, result.Score, faq.DefaultThreshold)
}
