package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/logger"
)

// Notifier delivers best-effort SMS alerts through the configured gateway.
// Failures are logged and never surfaced to callers; in-app rows are the
// source of truth and the SMS is a convenience copy.
type Notifier interface {
	SendSMS(ctx context.Context, mobileNumber, message string)
}

type gatewayNotifier struct {
	cfg    config.NotifyConfig
	client *http.Client
	logg   *logger.Logger
}

// NewNotifier builds the SMS notifier. With no gateway configured it
// degrades to logging the message, which is what dev environments run.
func NewNotifier(cfg config.NotifyConfig, logg *logger.Logger) (Notifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &gatewayNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
		logg:   logg,
	}, nil
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (n *gatewayNotifier) SendSMS(ctx context.Context, mobileNumber, message string) {
	logCtx := n.logg.WithField(ctx, "mobile_number", mobileNumber)
	if n.cfg.SMSGatewayURL == "" {
		n.logg.Info(n.logg.WithField(logCtx, "sms_body", message), "sms gateway not configured, logging only")
		return
	}

	body, err := json.Marshal(smsRequest{To: mobileNumber, Message: message})
	if err != nil {
		n.logg.Error(logCtx, "encode sms request", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.SMSGatewayURL, bytes.NewReader(body))
	if err != nil {
		n.logg.Error(logCtx, "build sms request", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.SMSAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.SMSAPIKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logg.Error(logCtx, "sms gateway call failed", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logg.Error(logCtx, "sms gateway rejected message", fmt.Errorf("status %d", resp.StatusCode))
		return
	}
	n.logg.Info(logCtx, "sms dispatched")
}
