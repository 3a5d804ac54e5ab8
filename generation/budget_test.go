package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBudget_Count(t *testing.T) {
	b, err := NewTokenBudget("cl100k_base", 100)
	require.NoError(t, err)

	assert.Equal(t, 0, b.Count(""))
	assert.Positive(t, b.Count("hello world"))
	assert.Greater(t, b.Count("hello world, how are you today?"), b.Count("hello"))
}

func TestTokenBudget_FitKeepsMostRecent(t *testing.T) {
	b, err := NewTokenBudget("cl100k_base", 0)
	require.NoError(t, err)

	turns := []Turn{
		{Question: "first question here", Answer: "first answer here"},
		{Question: "second question here", Answer: "second answer here"},
		{Question: "third question here", Answer: "third answer here"},
	}
	cost := b.Count(turns[2].Question) + b.Count(turns[2].Answer)
	b.max = cost + 1

	got := b.Fit(turns, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "third question here", got[0].Question)

	b.max = 1000
	assert.Equal(t, turns, b.Fit(turns, 0))
	assert.Empty(t, b.Fit(turns, 1000))
}

func TestTokenBudget_UnknownEncoding(t *testing.T) {
	_, err := NewTokenBudget("nope", 10)
	assert.Error(t, err)
}

func TestBuildMessages_TrimsPriorTurns(t *testing.T) {
	b, err := NewTokenBudget("cl100k_base", 0)
	require.NoError(t, err)

	req := Request{
		Input: "latest",
		PriorTurns: []Turn{
			{Question: "old question", Answer: "old answer"},
			{Question: "new question", Answer: "new answer"},
		},
	}
	b.max = b.Count("latest") + b.Count("new question") + b.Count("new answer")

	msgs := buildMessages(req, b)
	require.Len(t, msgs, 3)
	assert.Equal(t, "new question", msgs[0].Content)
	assert.Equal(t, "latest", msgs[2].Content)
	assert.Len(t, buildMessages(req, nil), 5)
}
