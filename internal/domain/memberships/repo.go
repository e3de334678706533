package memberships

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// UpsertOnRedemption создаёт или освежает членство. joined_at при
// повторном погашении не трогаем, expires_at всегда считается от
// момента погашения.
func (r *Repo) UpsertOnRedemption(ctx context.Context, userID, channelID int64, expiresAt time.Time, meta Meta) (*Membership, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal membership metadata: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO channel_memberships (user_id, channel_id, status, expires_at, metadata)
		VALUES ($1,$2,'active',$3,$4)
		ON CONFLICT (user_id, channel_id) DO UPDATE SET
		  status     = 'active',
		  expires_at = EXCLUDED.expires_at,
		  metadata   = EXCLUDED.metadata
		RETURNING user_id, channel_id, status, joined_at, expires_at, metadata
	`, userID, channelID, expiresAt, raw)

	m, err := scanMembership(row)
	if err != nil {
		return nil, fmt.Errorf("upsert membership: %w", err)
	}
	return m, nil
}

func (r *Repo) Get(ctx context.Context, userID, channelID int64) (*Membership, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, channel_id, status, joined_at, expires_at, metadata
		FROM channel_memberships
		WHERE user_id = $1 AND channel_id = $2
	`, userID, channelID)
	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// ExpireLapsed помечает истёкшие активные членства. Возвращает число строк.
func (r *Repo) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE channel_memberships
		SET status = 'expired'
		WHERE status = 'active' AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire memberships: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMembership(row pgx.Row) (*Membership, error) {
	var (
		m   Membership
		raw []byte
	)
	if err := row.Scan(&m.UserID, &m.ChannelID, &m.Status, &m.JoinedAt, &m.ExpiresAt, &raw); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(raw, &m.Metadata)
	return &m, nil
}
