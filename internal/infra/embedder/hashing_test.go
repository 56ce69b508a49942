package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
)

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "cant sleep at night", normalizeText("  Can't   sleep... at NIGHT?! "))
	require.Equal(t, "dont worry", normalizeText("Don’t worry"))
	require.Equal(t, "", normalizeText("?!"))
	require.Equal(t, []string{"cant", "sleep", "night"}, tokenize("I can't sleep at night"))
}

func TestHashingEncoder_Deterministic(t *testing.T) {
	enc := NewHashingEncoder(0)
	require.Equal(t, defaultHashingDimensions, enc.Dimension())

	first, err := enc.Encode(context.Background(), []string{"How can I improve my sleep?", "How do I find a therapist?"})
	require.NoError(t, err)
	second, err := NewHashingEncoder(0).Encode(context.Background(), []string{"How can I improve my sleep?", "How do I find a therapist?"})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 2)
	require.Len(t, first[0], defaultHashingDimensions)
}

func TestHashingEncoder_Similarity(t *testing.T) {
	enc := NewHashingEncoder(512)
	vectors, err := enc.Encode(context.Background(), []string{
		"How can I improve my sleep?",
		"I can't sleep at night",
		"How do I find a therapist?",
		"how can i IMPROVE my sleep",
	})
	require.NoError(t, err)

	require.InDelta(t, 1.0, faq.CosineSimilarity(vectors[0], vectors[0]), 1e-6)
	require.InDelta(t, 1.0, faq.CosineSimilarity(vectors[0], vectors[3]), 1e-6)

	related := faq.CosineSimilarity(vectors[1], vectors[0])
	unrelated := faq.CosineSimilarity(vectors[1], vectors[2])
	require.Greater(t, related, unrelated)
}

func TestHashingEncoder_EmptyTextIsZeroVector(t *testing.T) {
	vectors, err := NewHashingEncoder(64).Encode(context.Background(), []string{"", " ?! "})
	require.NoError(t, err)
	for _, vec := range vectors {
		require.Len(t, vec, 64)
		for _, v := range vec {
			require.Zero(t, v)
		}
	}
}

func TestHashingEncoder_StopWordsOnlyStillEmbeds(t *testing.T) {
	require.Equal(t, []string{"what", "is", "it"}, tokenize("What is it?"))

	enc := NewHashingEncoder(128)
	vectors, err := enc.Encode(context.Background(), []string{"What is it?", "How do I sleep better?", "what IS it"})
	require.NoError(t, err)
	require.InDelta(t, 1.0, faq.CosineSimilarity(vectors[0], vectors[0]), 1e-6)
	require.InDelta(t, 1.0, faq.CosineSimilarity(vectors[0], vectors[2]), 1e-6)

	matcher, err := faq.NewMatcher(context.Background(), faq.Config{}, stopWordSource{}, enc, nil)
	require.NoError(t, err)
	result := matcher.Match(context.Background(), "What is it?")
	require.Equal(t, faq.OutcomeMatched, result.Outcome)
	require.Equal(t, 0, result.Index)
	require.InDelta(t, 1.0, result.Score, 1e-6)
}

type stopWordSource struct{}

func (stopWordSource) Load(context.Context) ([]faq.Entry, error) {
	return []faq.Entry{
		{ID: "1", Question: "What is it?", Answer: "It is a thing."},
		{ID: "2", Question: "How do I sleep better?", Answer: "Keep a routine."},
	}, nil
}
