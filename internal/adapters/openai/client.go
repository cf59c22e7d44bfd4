/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/HamedShams/groona-pulse/internal/config"
)

type Client struct {
	key   string
	model string
	cli   openai.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	model := cfg.OpenAIModel
	if strings.TrimSpace(model) == "" { model = "gpt-4.1-mini" }
	cli := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey), option.WithRequestTimeout(cfg.OpenAITimeout))
	return &Client{key: cfg.OpenAIKey, model: model, cli: cli, log: log}
}

// Enabled reports whether an API key is configured. The ops digest falls
// back to a plain tabular summary when it is not.
func (c *Client) Enabled() bool { return strings.TrimSpace(c.key) != "" }

// Summarize turns weekly alert counts into a short operator-facing note.
func (c *Client) Summarize(ctx context.Context, counts map[string]map[string]int64) (string, error) {
	if !c.Enabled() { return "", errors.New("openai: missing key") }
	c.log.Info().Str("model", c.model).Msg("openai Summarize call")
	userContent := ""
	if b, err := json.Marshal(counts); err == nil { userContent = string(b) }
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are an operations analyst for a project-management platform. Given per-tenant alert counts by rule for the past week, produce a concise summary highlighting noisy tenants, unusual spikes, and suggested follow-ups. Plain text, a few short paragraphs."),
			openai.UserMessage(userContent),
		},
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil { return "", err }
	if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
	return resp.Choices[0].Message.Content, nil
}
