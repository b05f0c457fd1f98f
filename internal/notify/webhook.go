// v1
// internal/notify/webhook.go
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Webhook posts each notification as JSON to a fixed URL.
type Webhook struct {
	client *resty.Client
	url    string
}

func NewWebhook(url string, retries int, timeout time.Duration) *Webhook {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})
	return &Webhook{client: client, url: url}
}

func (w *Webhook) Forward(ctx context.Context, n Notification) error {
	resp, err := w.client.R().SetContext(ctx).SetBody(n).Post(w.url)
	if err != nil {
		return fmt.Errorf("post %s: %w", w.url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("post %s: status %d", w.url, resp.StatusCode())
	}
	return nil
}
