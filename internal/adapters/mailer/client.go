/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/HamedShams/groona-pulse/internal/config"
	"github.com/rs/zerolog"
)

// Client talks to the platform's templated-email service.
type Client struct {
	baseURL string
	token   string
	from    string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{baseURL: cfg.MailerBaseURL, token: cfg.MailerToken, from: cfg.MailerFrom, http: &http.Client{Timeout: 10 * time.Second}, log: log}
}

// SendTemplate posts a render-and-send request. When the mailer is not
// configured the call is a logged no-op so alert rows are still written.
func (c *Client) SendTemplate(ctx context.Context, to, template string, data map[string]any) error {
	if c.baseURL == "" || c.token == "" {
		c.log.Debug().Str("to", to).Str("template", template).Msg("mailer not configured, skipping email")
		return nil
	}
	if to == "" || template == "" { return fmt.Errorf("mailer: missing recipient or template") }
	body := map[string]any{"from": c.from, "to": to, "template": template, "data": data}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewReader(b))
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil { return err }
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mailer send status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
