package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hivechat/hive/config"
)

// ErrNotConfigured 未配置凭据，调用方应直接走本地统计摘要
var ErrNotConfigured = errors.New("摘要服务未配置")

// Summarizer 根据格式化后的聊天记录生成一段摘要文字
type Summarizer interface {
	Summarize(ctx context.Context, transcript, windowLabel string) (string, error)
}

// HTTPSummarizer 调用外部 LLM 接口的实现
type HTTPSummarizer struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHTTPSummarizer(cfg *config.SummarizerConfig) *HTTPSummarizer {
	return &HTTPSummarizer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

type summarizeRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type summarizeResponse struct {
	Text string `json:"text"`
}

func (s *HTTPSummarizer) Summarize(ctx context.Context, transcript, windowLabel string) (string, error) {
	if s.apiKey == "" || s.endpoint == "" {
		return "", ErrNotConfigured
	}

	prompt := fmt.Sprintf("用一小段话总结以下群聊内容（时间范围：%s）：\n\n%s", windowLabel, transcript)
	body, err := json.Marshal(summarizeRequest{Model: s.model, Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用摘要服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("摘要服务返回 %d", resp.StatusCode)
	}

	var result summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析摘要响应失败: %w", err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return "", errors.New("摘要服务返回空内容")
	}
	return result.Text, nil
}
