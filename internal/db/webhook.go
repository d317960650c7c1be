package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// ListActiveWebhooksByOwnerAndEvent finds subscriptions interested in a given
// event type; event_types is matched with the array containment operator.
func (q *Queries) ListActiveWebhooksByOwnerAndEvent(ctx context.Context, ownerID pgtype.UUID, eventType string) ([]Webhook, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, owner_id, url, secret, event_types, is_active
		FROM webhook
		WHERE owner_id = $1 AND is_active = true AND $2 = ANY(event_types)
	`, ownerID, eventType)
	if err != nil {
		return nil, fmt.Errorf("list active webhooks: %w", err)
	}
	defer rows.Close()

	var out []Webhook
	for rows.Next() {
		var w Webhook
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.URL, &w.Secret, &w.EventTypes, &w.IsActive); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type CreateWebhookDeliveryParams struct {
	WebhookID pgtype.UUID
	EventType string
	Payload   []byte
}

func (q *Queries) CreateWebhookDelivery(ctx context.Context, arg CreateWebhookDeliveryParams) (WebhookDelivery, error) {
	var d WebhookDelivery
	d.WebhookID = arg.WebhookID
	d.EventType = arg.EventType
	d.Payload = arg.Payload
	d.Status = WebhookDeliveryPending
	err := q.db.QueryRow(ctx, `
		INSERT INTO webhook_delivery (webhook_id, event_type, payload, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id, created_at
	`, arg.WebhookID, arg.EventType, arg.Payload).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return WebhookDelivery{}, fmt.Errorf("create webhook delivery: %w", err)
	}
	return d, nil
}

func (q *Queries) GetWebhookDelivery(ctx context.Context, id pgtype.UUID) (WebhookDelivery, error) {
	var d WebhookDelivery
	err := q.db.QueryRow(ctx, `
		SELECT id, webhook_id, event_type, payload, attempt, status, created_at
		FROM webhook_delivery WHERE id = $1
	`, id).Scan(&d.ID, &d.WebhookID, &d.EventType, &d.Payload, &d.Attempt, &d.Status, &d.CreatedAt)
	if err != nil {
		return WebhookDelivery{}, fmt.Errorf("get webhook delivery: %w", err)
	}
	return d, nil
}

func (q *Queries) GetWebhook(ctx context.Context, id pgtype.UUID) (Webhook, error) {
	var w Webhook
	err := q.db.QueryRow(ctx, `
		SELECT id, owner_id, url, secret, event_types, is_active FROM webhook WHERE id = $1
	`, id).Scan(&w.ID, &w.OwnerID, &w.URL, &w.Secret, &w.EventTypes, &w.IsActive)
	if err != nil {
		return Webhook{}, fmt.Errorf("get webhook: %w", err)
	}
	return w, nil
}

func (q *Queries) MarkWebhookDeliveryStatus(ctx context.Context, id pgtype.UUID, status WebhookDeliveryStatus) error {
	_, err := q.db.Exec(ctx, `
		UPDATE webhook_delivery SET status = $2, attempt = attempt + 1 WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("mark webhook delivery status: %w", err)
	}
	return nil
}
