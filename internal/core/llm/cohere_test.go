package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCohereProvider_Call(t *testing.T) {
	var gotReq cohereChatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_, _ = w.Write([]byte(`{
			"message": {"role": "assistant", "content": [{"type": "text", "text": "Looks fine.\n"}, {"type": "text", "text": "{\"score\": 0.1}"}]},
			"finish_reason": "COMPLETE",
			"usage": {"tokens": {"input_tokens": 40, "output_tokens": 8}}
		}`))
	}))
	defer srv.Close()

	usage := &recordedUsage{}
	p := newCohereProvider(newTestSettings(srv.URL), DefaultPrompt(PromptStyleReasoning), usage, nil, srv.Client())

	got, err := p.Call(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, "Looks fine.\n{\"score\": 0.1}", got)
	assert.Equal(t, ModelCommandR, gotReq.Model)
	assert.Equal(t, 40, usage.prompt)
}

func TestCohereProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api token"}`))
	}))
	defer srv.Close()

	p := newCohereProvider(newTestSettings(srv.URL), DefaultPrompt(PromptStyleNumeric), nil, nil, srv.Client())

	_, err := p.Call(context.Background(), testURL)
	require.ErrorIs(t, err, ErrCohereAPIFailure)
	assert.Contains(t, err.Error(), "invalid api token")
}

func TestCohereProvider_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":[]}}`))
	}))
	defer srv.Close()

	p := newCohereProvider(newTestSettings(srv.URL), DefaultPrompt(PromptStyleNumeric), nil, nil, srv.Client())

	_, err := p.Call(context.Background(), testURL)
	require.ErrorIs(t, err, ErrCohereEmptyResponse)
}
