package expand

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Compile-time check: LLMExpander implements Expander.
var _ Expander = (*LLMExpander)(nil)

// LLMExpander is an alternative expansion strategy backed by an
// OpenAI-compatible chat API. Selected via search.expansion_strategy;
// the dictionary strategy remains the default. On provider failure it
// falls back to the unexpanded query rather than failing the search.
type LLMExpander struct {
	client        *openai.Client
	model         string
	maxExpansions int
	logger        *zap.Logger
}

// LLMConfig holds the expansion provider settings.
type LLMConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxExpansions int
	Logger        *zap.Logger
}

// NewLLM creates an LLM-backed expander.
func NewLLM(cfg LLMConfig) *LLMExpander {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	max := cfg.MaxExpansions
	if max <= 0 {
		max = DefaultMaxExpansions
	}
	return &LLMExpander{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		maxExpansions: max,
		logger:        cfg.Logger,
	}
}

const expandPrompt = `Rewrite the CRM search query below into up to %d alternative ` +
	`query strings that expand acronyms and substitute business synonyms. ` +
	`Respond with a JSON array of strings only.

Query: %q`

// Expand asks the model for alternative phrasings. The original query is
// always first.
func (e *LLMExpander) Expand(ctx context.Context, _, queryText string) ([]string, error) {
	out := []string{queryText}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(expandPrompt, e.maxExpansions, queryText),
		}},
	})
	if err != nil {
		e.logger.Warn("llm expansion failed, searching unexpanded query", zap.Error(err))
		return out, nil
	}
	if len(resp.Choices) == 0 {
		return out, nil
	}

	var variants []string
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &variants); err != nil {
		e.logger.Warn("llm expansion returned non-JSON content", zap.Error(err))
		return out, nil
	}

	seen := map[string]struct{}{strings.ToLower(queryText): {}}
	for _, v := range variants {
		if len(out)-1 >= e.maxExpansions {
			break
		}
		v = strings.TrimSpace(v)
		lower := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
