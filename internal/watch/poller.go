package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"beepstream/internal/models"
)

// Poller refetches the active-log snapshot on a fixed interval and
// reconciles from it. This is the consistency backstop: even with the
// push channel down, the alarm converges to the polled truth.
type Poller struct {
	BaseURL    string
	Interval   time.Duration
	HTTP       *http.Client
	Reconciler *Reconciler
	Logger     *zap.Logger
}

type logsResponse struct {
	Success bool         `json:"success"`
	Logs    []models.Log `json:"logs"`
	Error   string       `json:"error"`
}

func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	p.pollOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	logs, err := p.FetchActiveLogs(ctx)
	if err != nil {
		// Leave the alarm state alone on a failed poll: stale truth beats
		// no truth, and the push channel may still be live.
		if p.Logger != nil {
			p.Logger.Warn("poll failed", zap.Error(err))
		}
		return
	}
	p.Reconciler.Reconcile(hasActiveBeep(logs))
}

func (p *Poller) FetchActiveLogs(ctx context.Context) ([]models.Log, error) {
	client := p.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	url := strings.TrimRight(p.BaseURL, "/") + "/api/logs"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body logsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, fmt.Errorf("server error: %s", body.Error)
	}
	return body.Logs, nil
}

func hasActiveBeep(logs []models.Log) bool {
	for _, item := range logs {
		if !item.Archived && item.BeepType == models.BeepTypeBeep {
			return true
		}
	}
	return false
}
