package postgres

import (
	"context"
	"fmt"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// appendHistory only inserts; history rows are never updated. The (auction_id, seq) key
// rejects a replayed entry.
func appendHistory(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, entries []domain.BidEntry) error {
	if len(entries) == 0 {
		return nil
	}
	query := `
        INSERT INTO bid_history (auction_id, seq, bidder_id, amount, kind, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6)
    `
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query, auctionID, e.Seq, e.BidderID, e.Amount.String(), string(e.Kind), e.Timestamp)
	}
	return execBatch(ctx, tx, batch, "append bid history")
}

func upsertAgents(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, agents []*domain.ProxyAgent) error {
	if len(agents) == 0 {
		return nil
	}
	query := `
        INSERT INTO proxy_agents (auction_id, bidder_id, ceiling, status, created_at, updated_at)
        VALUES ($1, $2, $3::numeric, $4, $5, $6)
        ON CONFLICT (auction_id, bidder_id) DO UPDATE
        SET
            ceiling = EXCLUDED.ceiling,
            status = EXCLUDED.status,
            updated_at = EXCLUDED.updated_at
    `
	batch := &pgx.Batch{}
	for _, p := range agents {
		batch.Queue(query, auctionID, p.BidderID, p.Ceiling.String(), string(p.Status), p.CreatedAt, p.UpdatedAt)
	}
	return execBatch(ctx, tx, batch, "upsert proxy agents")
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, op string) error {
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func loadHistory(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) ([]domain.BidEntry, error) {
	query := `
        SELECT seq, bidder_id, amount::text, kind, created_at
        FROM bid_history
        WHERE auction_id = $1
        ORDER BY seq ASC
    `
	rows, err := tx.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("select bid history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.BidEntry, 0)
	for rows.Next() {
		var (
			e      domain.BidEntry
			amount string
			kind   string
		)
		if err := rows.Scan(&e.Seq, &e.BidderID, &amount, &kind, &e.Timestamp); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		e.Kind = domain.BidKind(kind)
		e.Timestamp = e.Timestamp.UTC()
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func loadAgents(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (map[uuid.UUID]*domain.ProxyAgent, error) {
	query := `
        SELECT bidder_id, ceiling::text, status, created_at, updated_at
        FROM proxy_agents
        WHERE auction_id = $1
    `
	rows, err := tx.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("select proxy agents: %w", err)
	}
	defer rows.Close()

	agents := make(map[uuid.UUID]*domain.ProxyAgent)
	for rows.Next() {
		var (
			p       domain.ProxyAgent
			ceiling string
			status  string
		)
		if err := rows.Scan(&p.BidderID, &ceiling, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.Ceiling, err = decimal.NewFromString(ceiling); err != nil {
			return nil, err
		}
		p.Status = domain.AgentStatus(status)
		p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
		agents[p.BidderID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return agents, nil
}
