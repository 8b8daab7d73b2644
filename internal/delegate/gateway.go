// Package delegate 负责把用户消息转发给可选配置的 n8n 自动化端点。
// 对调用方而言 Deliver 永远成功：任何网络或格式错误都静默回落到本地生成。
package delegate

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ryze-backend/internal/model"
	"ryze-backend/pkg/logger"
)

type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

// LocalResponder 本地回复路径，端点缺失或失败时的兜底
type LocalResponder func(text string) string

type webhookRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
}

// webhookResponse 端点返回的鸭子类型：优先 response，其次 message
type webhookResponse struct {
	Response string `json:"response"`
	Message  string `json:"message"`
}

// outcome 出站调用的标记结果，两种失败都走同一条兜底路径
type outcome int

const (
	outcomeOK outcome = iota
	outcomeMalformed
	outcomeTransport
)

type Result struct {
	Reply  string
	Source string
}

type Gateway struct {
	cfg    Config
	client *http.Client
	local  LocalResponder
}

func NewGateway(cfg Config, local LocalResponder) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		local:  local,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
			},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Deliver 每条用户消息只发起一次出站调用，不重试不退避；
// 本地路径已经保证可用，重试只会拖慢回复。
// 端点未配置时直接走本地，不会有任何网络动作。
func (g *Gateway) Deliver(ctx context.Context, text, sessionID string) Result {
	if g.cfg.WebhookURL == "" {
		return Result{Reply: g.local(text), Source: model.SourceLocal}
	}

	reply, oc, err := g.callWebhook(ctx, text, sessionID)
	if oc != outcomeOK {
		// 失败只记日志，对话侧永远拿到可用回复
		logger.Warnf("webhook 调用失败，回落本地回复: outcome=%d err=%v", oc, err)
		return Result{Reply: g.local(text), Source: model.SourceLocal}
	}

	return Result{Reply: reply, Source: model.SourceWebhook}
}

func (g *Gateway) callWebhook(ctx context.Context, text, sessionID string) (string, outcome, error) {
	body, err := json.Marshal(webhookRequest{
		Message:   text,
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", outcomeTransport, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return "", outcomeTransport, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", outcomeTransport, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", outcomeTransport, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", outcomeTransport, fmt.Errorf("webhook error: %s", resp.Status)
	}

	var parsed webhookResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", outcomeMalformed, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	switch {
	case parsed.Response != "":
		return parsed.Response, outcomeOK, nil
	case parsed.Message != "":
		return parsed.Message, outcomeOK, nil
	default:
		return "", outcomeMalformed, fmt.Errorf("webhook response missing response/message field")
	}
}
