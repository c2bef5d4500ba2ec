package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avelichko/vidstream/internal/repository"
)

type SubscriptionRepo struct {
	DB DBTX
}

const subscribe = `-- name: Subscribe
INSERT INTO subscriptions (id, subscriber_id, channel_id)
VALUES ($1, $2, $3)
ON CONFLICT (subscriber_id, channel_id) DO NOTHING
`

func (r *SubscriptionRepo) Subscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, subscribe, uuid.New(), subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const unsubscribe = `-- name: Unsubscribe
DELETE FROM subscriptions
WHERE subscriber_id = $1 AND channel_id = $2
`

func (r *SubscriptionRepo) Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, unsubscribe, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const channelStats = `-- name: ChannelStats
SELECT
    (SELECT count(*) FROM subscriptions WHERE channel_id = $1)    AS subscriber_count,
    (SELECT count(*) FROM subscriptions WHERE subscriber_id = $1) AS subscribed_to_count,
    EXISTS (
        SELECT 1 FROM subscriptions
        WHERE channel_id = $1 AND subscriber_id = $2
    ) AS is_subscribed
`

func (r *SubscriptionRepo) ChannelStats(ctx context.Context, channelID uuid.UUID, viewerID *uuid.UUID) (repository.ChannelStats, error) {
	rows, _ := r.DB.Query(ctx, channelStats, channelID, viewerID)
	stats, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (repository.ChannelStats, error) {
		var s repository.ChannelStats
		err := row.Scan(&s.SubscriberCount, &s.SubscribedToCount, &s.IsSubscribed)
		return s, err
	})

	switch {
	case err == nil:
		return stats, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Aggregate always yields a row, but keep the branch for safety
		return repository.ChannelStats{}, nil
	default:
		return stats, fmt.Errorf("db error: %w", err)
	}
}
