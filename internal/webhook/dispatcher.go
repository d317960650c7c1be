package webhook

import (
	"context"
	"log/slog"

	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type DispatcherQuerier interface {
	ListActiveWebhooksByOwnerAndEvent(ctx context.Context, ownerID pgtype.UUID, eventType string) ([]db.Webhook, error)
	CreateWebhookDelivery(ctx context.Context, arg db.CreateWebhookDeliveryParams) (db.WebhookDelivery, error)
}

type Broker interface {
	Enqueue(jobType string, payload any) (string, error)
}

type DeliveryPayload struct {
	DeliveryID string `json:"delivery_id"`
}

type Dispatcher struct {
	queries DispatcherQuerier
	broker  Broker
	queue   string
	logger  *slog.Logger
}

func NewDispatcher(queries DispatcherQuerier, broker Broker, queue string) *Dispatcher {
	return &Dispatcher{
		queries: queries,
		broker:  broker,
		queue:   queue,
		logger:  slog.Default(),
	}
}

func (d *Dispatcher) WithLogger(log *slog.Logger) *Dispatcher {
	d.logger = log
	return d
}

// Dispatch looks up the owner's active subscriptions for event.Type, records
// a pending delivery for each, and enqueues it onto the webhook-delivery
// queue. A failed subscription lookup or event marshal is logged and
// returned; a failed delivery insert or enqueue is logged and that webhook
// is skipped. The projector logs a returned error and carries on, so webhook
// delivery never blocks the resource pipeline.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerID uuid.UUID, event *Event) error {
	log := logger.FromContext(ctx).With("event_type", event.Type, "event_id", event.ID)

	pgOwnerID := pgtype.UUID{Bytes: ownerID, Valid: true}

	webhooks, err := d.queries.ListActiveWebhooksByOwnerAndEvent(ctx, pgOwnerID, event.Type)
	if err != nil {
		log.Error("failed to list webhooks", "error", err)
		return err
	}

	if len(webhooks) == 0 {
		log.Debug("no active webhooks for event")
		return nil
	}

	payloadBytes, err := event.Marshal()
	if err != nil {
		log.Error("failed to marshal event", "error", err)
		return err
	}

	for _, wh := range webhooks {
		delivery, err := d.queries.CreateWebhookDelivery(ctx, db.CreateWebhookDeliveryParams{
			WebhookID: wh.ID,
			EventType: event.Type,
			Payload:   payloadBytes,
		})
		if err != nil {
			log.Error("failed to create delivery", "webhook_id", uuidToString(wh.ID), "error", err)
			continue
		}

		if _, err := d.broker.Enqueue(d.queue, DeliveryPayload{
			DeliveryID: uuidToString(delivery.ID),
		}); err != nil {
			log.Error("failed to enqueue delivery", "delivery_id", uuidToString(delivery.ID), "error", err)
		}
	}

	log.Info("dispatched webhook event", "webhook_count", len(webhooks))
	return nil
}

func uuidToString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	u := uuid.UUID(id.Bytes)
	return u.String()
}
