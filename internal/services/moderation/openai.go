package moderation

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClassifier calls the OpenAI moderation endpoint.
type OpenAIClassifier struct {
	client *openai.Client
}

func NewOpenAIClassifier(apiKey, baseURL string) *OpenAIClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIClassifier{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (bool, []string, error) {
	resp, err := c.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: openai.ModerationTextLatest,
	})
	if err != nil {
		return false, nil, fmt.Errorf("openai moderation: %w", err)
	}

	flagged := false
	var categories []string
	for _, res := range resp.Results {
		if !res.Flagged {
			continue
		}
		flagged = true
		categories = append(categories, flaggedCategories(res.Categories)...)
	}
	return flagged, categories, nil
}

func flaggedCategories(c openai.ResultCategories) []string {
	var out []string
	if c.Hate {
		out = append(out, "hate")
	}
	if c.SelfHarm {
		out = append(out, "self-harm")
	}
	if c.Sexual {
		out = append(out, "sexual")
	}
	if c.Violence {
		out = append(out, "violence")
	}
	return out
}
