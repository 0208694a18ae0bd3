package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	chatdomain "github.com/fintelhq/spendsight/internal/chat/domain"
	"github.com/fintelhq/spendsight/internal/config"
	"github.com/fintelhq/spendsight/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

type Service struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(p Params) chatdomain.Service {
	return &Service{
		baseURL: strings.TrimRight(strings.TrimSpace(p.Config.NLQBaseURL), "/"),
		client:  &http.Client{Timeout: requestTimeout},
		log:     p.Log.Named("chat.service"),
		metrics: p.Metrics,
	}
}

// GenerateSQL forwards the prompt to the NL-to-SQL service and returns its
// JSON body verbatim, whatever shape the upstream chose.
func (s *Service) GenerateSQL(ctx context.Context, req chatdomain.GenerateSQLRequest) (json.RawMessage, error) {
	if s.baseURL == "" {
		s.metrics.RecordChatRequest(ctx, "not_configured")
		return nil, chatdomain.ErrNotConfigured
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("chat: encode prompt: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/generate-sql", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("chat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.metrics.RecordChatRequest(ctx, "error")
		return nil, fmt.Errorf("chat: call nl-to-sql service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.metrics.RecordChatRequest(ctx, "error")
		return nil, fmt.Errorf("chat: read response: %w", err)
	}

	s.log.Debug("nl-to-sql response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)
	s.metrics.RecordChatRequest(ctx, "ok")
	return json.RawMessage(body), nil
}
