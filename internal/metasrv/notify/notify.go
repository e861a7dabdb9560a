package notify

import (
	"bytes"
	"context"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/metasrv/config"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Topics follow "meta.<kind>.<action>".
const (
	TopicObjectWritten = "meta.object.written"
	TopicConfigWritten = "meta.config.written"
	TopicTenantChanged = "meta.tenant.changed"
)

// WriteNotice announces committed metadata writes. Headers identify the
// written tags; definitions and attributes are never forwarded.
type WriteNotice struct {
	TenantID types.TenantId       `json:"tenantId"`
	Headers  []metadata.TagHeader `json:"headers"`
	Time     time.Time            `json:"time"`
}

// ConfigNotice announces a directory entry change.
type ConfigNotice struct {
	TenantID    types.TenantId `json:"tenantId"`
	ConfigClass string         `json:"configClass"`
	ConfigKey   string         `json:"configKey"`
	Deleted     bool           `json:"deleted"`
	Time        time.Time      `json:"time"`
}

var bus = NewBus()

// DefaultBus exposes the process-wide bus for additional subscribers.
func DefaultBus() *Bus {
	return bus
}

const publishTimeout = 10 * time.Millisecond

func ObjectsWritten(tenantID types.TenantId, headers []metadata.TagHeader) {
	if len(headers) == 0 {
		return
	}
	bus.Publish(TopicObjectWritten, &WriteNotice{
		TenantID: tenantID,
		Headers:  headers,
		Time:     time.Now().UTC(),
	}, publishTimeout)
}

func ConfigWritten(tenantID types.TenantId, configClass, configKey string, deleted bool) {
	bus.Publish(TopicConfigWritten, &ConfigNotice{
		TenantID:    tenantID,
		ConfigClass: configClass,
		ConfigKey:   configKey,
		Deleted:     deleted,
		Time:        time.Now().UTC(),
	}, publishTimeout)
}

// StartWebhookForwarder subscribes to all topics and POSTs each event to
// the configured webhook. Returns immediately; the forwarder stops when ctx
// is cancelled. No-op when no webhook is configured.
func StartWebhookForwarder(ctx context.Context) {
	cfg := config.Config().Notify
	if cfg.WebhookURL == "" {
		return
	}
	ch, unsubscribe := bus.Subscribe("meta.*.*", 256)
	client := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}

	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				postEvent(ctx, client, cfg.WebhookURL, ev)
			}
		}
	}()
}

type webhookEnvelope struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// postEvent is best effort. Failures are logged and dropped; the webhook is
// a notification channel, not a ledger.
func postEvent(ctx context.Context, client *http.Client, url string, ev Event) {
	body, err := json.Marshal(webhookEnvelope{Topic: ev.Topic, Payload: ev.Payload})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("topic", ev.Topic).Msg("unable to encode notification")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	rsp, err := client.Do(req)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("topic", ev.Topic).Msg("notification delivery failed")
		return
	}
	defer rsp.Body.Close()
	if rsp.StatusCode >= 300 {
		log.Ctx(ctx).Warn().Int("status", rsp.StatusCode).Str("topic", ev.Topic).Msg("notification rejected")
	}
}
