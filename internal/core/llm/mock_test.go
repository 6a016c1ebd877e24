package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

func TestMockProvider_LexicalReply(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantScore string
	}{
		{name: "clean https", url: "https://rapreviews.com/archive/2010_04_cityofdirt.html", wantScore: `{"score": 0.10}`},
		{name: "http login", url: testURL, wantScore: `{"score": 0.50}`},
		{name: "ip host", url: "http://192.168.1.10/x", wantScore: `{"score": 0.50}`},
	}

	p := NewMockProvider()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Call(context.Background(), tt.url)
			require.NoError(t, err)

			lines := strings.Split(got, "\n")
			require.Len(t, lines, 2)
			assert.Equal(t, tt.wantScore, lines[1])
		})
	}
}

func TestScriptedProvider(t *testing.T) {
	errBoom := errors.New("boom")

	p := NewScriptedProvider(func(_ context.Context, url string) (string, error) {
		if url == "bad" {
			return "", errBoom
		}

		return "0.3", nil
	})

	got, err := p.Call(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "0.3", got)

	_, err = p.Call(context.Background(), "bad")
	require.ErrorIs(t, err, errBoom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Call(ctx, "good")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	prompt := DefaultPrompt(PromptStyleReasoning)

	tests := []struct {
		provider string
		wantName ProviderName
		wantErr  error
	}{
		{provider: config.ProviderOpenAI, wantName: ProviderOpenAI},
		{provider: config.ProviderXAI, wantName: ProviderXAI},
		{provider: config.ProviderAnthropic, wantName: ProviderAnthropic},
		{provider: config.ProviderCohere, wantName: ProviderCohere},
		{provider: config.ProviderOpenRouter, wantName: ProviderOpenRouter},
		{provider: config.ProviderMock, wantName: ProviderMock},
		{provider: "bard", wantErr: apperrors.ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := New(context.Background(), config.OracleSettings{Provider: tt.provider, APIKey: "k"}, prompt, nil, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.NotEmpty(t, p.Model())
		})
	}
}

func TestNew_ModelDefaults(t *testing.T) {
	xai, err := New(context.Background(), config.OracleSettings{Provider: config.ProviderXAI, APIKey: "k"}, Prompt{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ModelGrok4Latest, xai.Model())

	claude, err := New(context.Background(), config.OracleSettings{Provider: config.ProviderAnthropic, APIKey: "k", Model: "gpt-4o"}, Prompt{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ModelClaudeHaiku, claude.Model())
}
