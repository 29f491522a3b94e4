package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, content string, status int) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var requests []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestOpenAIJudgeReturnsSanitizedVerdict(t *testing.T) {
	server, requests := newChatServer(t, `{"isCorrect": true, "explanation": "<b>Paris</b> is correct<script>x</script>"}`, http.StatusOK)

	judge, err := NewOpenAIJudge(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	verdict, err := judge.Judge(context.Background(), EquivalenceInput{
		Question:      "Capital of France?",
		CorrectAnswer: "Paris",
		StudentAnswer: "paris",
		QuestionType:  "short_answer",
	})
	require.NoError(t, err)
	require.True(t, verdict.IsCorrect)
	require.Equal(t, "Paris is correct", verdict.Explanation)

	require.Len(t, *requests, 1)
	require.Equal(t, "gpt-4o-mini", (*requests)[0]["model"])
	format, ok := (*requests)[0]["response_format"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "json_object", format["type"])
}

func TestOpenAIJudgeMalformedReply(t *testing.T) {
	server, _ := newChatServer(t, "I believe the answer is right.", http.StatusOK)

	judge, err := NewOpenAIJudge(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = judge.Judge(context.Background(), EquivalenceInput{Question: "q", CorrectAnswer: "a", StudentAnswer: "b"})
	require.ErrorIs(t, err, ErrMalformedVerdict)
}

func TestOpenAIJudgeUpstreamError(t *testing.T) {
	server, _ := newChatServer(t, "", http.StatusInternalServerError)

	judge, err := NewOpenAIJudge(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = judge.Judge(context.Background(), EquivalenceInput{Question: "q", CorrectAnswer: "a", StudentAnswer: "b"})
	require.Error(t, err)
}

func TestNewOpenAIJudgeRequiresKey(t *testing.T) {
	_, err := NewOpenAIJudge(OpenAIConfig{})
	require.Error(t, err)
}
