package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionRepository implements domain.AuctionRepository on Postgres. The auctions row carries
// a version column; Commit only succeeds against the version the change was computed from.
type AuctionRepository struct {
	pool *pgxpool.Pool
}

var _ domain.AuctionRepository = (*AuctionRepository)(nil)

// NewAuctionRepository creates a new instance of AuctionRepository
func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

func (r *AuctionRepository) Create(ctx context.Context, a *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, title, start_time, finished_time, bid_hide_time, start_price,
            buy_now_price, min_increment, current_price, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10, $11, $12)
    `
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.Title,
		a.StartTime,
		a.FinishedTime,
		a.BidHideTime,
		a.StartPrice.String(),
		nullDecimalArg(a.BuyNowPrice),
		a.MinIncrement.String(),
		a.CurrentPrice.String(),
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert auction %s: %w", a.ID, err)
	}
	return nil
}

// GetByID loads the auction with its history and agents from one repeatable-read snapshot,
// so a concurrent commit is either fully visible or not at all.
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (a *domain.Auction, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	a, err = r.loadAuction(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if a.History, err = loadHistory(ctx, tx, id); err != nil {
		return nil, err
	}
	if a.Agents, err = loadAgents(ctx, tx, id); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AuctionRepository) loadAuction(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Auction, error) {
	query := `
        SELECT id, title, start_time, finished_time, bid_hide_time, start_price::text,
            buy_now_price::text, min_increment::text, current_price::text, top_bidder_id,
            top_amount::text, top_is_proxy, top_ceiling::text, close_reason, closed_at,
            closed_by, version, created_at, updated_at
        FROM auctions
        WHERE id = $1
    `
	a := &domain.Auction{}
	var (
		startPrice, minIncrement, currentPrice string
		buyNow, topAmount, topCeiling          *string
		topBidder                              *uuid.UUID
		topIsProxy                             bool
		closeReason, closedBy                  *string
	)
	err := tx.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.Title,
		&a.StartTime,
		&a.FinishedTime,
		&a.BidHideTime,
		&startPrice,
		&buyNow,
		&minIncrement,
		&currentPrice,
		&topBidder,
		&topAmount,
		&topIsProxy,
		&topCeiling,
		&closeReason,
		&a.ClosedAt,
		&closedBy,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("select auction %s: %w", id, err)
	}

	if a.StartPrice, err = decimal.NewFromString(startPrice); err != nil {
		return nil, err
	}
	if a.MinIncrement, err = decimal.NewFromString(minIncrement); err != nil {
		return nil, err
	}
	if a.CurrentPrice, err = decimal.NewFromString(currentPrice); err != nil {
		return nil, err
	}
	if a.BuyNowPrice, err = parseNullDecimal(buyNow); err != nil {
		return nil, err
	}
	if topBidder != nil {
		top := &domain.TopBid{BidderID: *topBidder, IsProxy: topIsProxy}
		if top.Amount, err = parseDecimal(topAmount); err != nil {
			return nil, err
		}
		if top.Ceiling, err = parseDecimal(topCeiling); err != nil {
			return nil, err
		}
		a.TopBid = top
	}
	if closeReason != nil {
		a.CloseReason = domain.CloseReason(*closeReason)
	}
	if closedBy != nil {
		a.ClosedBy = *closedBy
	}
	normalizeTimes(a)
	return a, nil
}

// Commit writes the auction row, appends the new history entries and upserts the touched
// agents in one transaction guarded by the expected version.
func (r *AuctionRepository) Commit(ctx context.Context, ch *domain.Change) (err error) {
	a := ch.Auction
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error("AuctionRepository: failed to commit transaction",
				zap.String("auctionID", a.ID.String()),
				zap.Error(commitErr),
			)
			err = fmt.Errorf("commit auction %s: %w", a.ID, commitErr)
			return
		}
		a.Version = ch.ExpectedVersion + 1
	}()

	if err = updateAuction(ctx, tx, ch); err != nil {
		return err
	}
	if err = appendHistory(ctx, tx, a.ID, ch.NewEntries); err != nil {
		return err
	}
	if err = upsertAgents(ctx, tx, a.ID, ch.Agents); err != nil {
		return err
	}
	return nil
}

func updateAuction(ctx context.Context, tx pgx.Tx, ch *domain.Change) error {
	a := ch.Auction
	query := `
        UPDATE auctions
        SET current_price = $2::numeric,
            top_bidder_id = $3,
            top_amount = $4::numeric,
            top_is_proxy = $5,
            top_ceiling = $6::numeric,
            close_reason = $7,
            closed_at = $8,
            closed_by = $9,
            updated_at = $10,
            version = version + 1
        WHERE id = $1 AND version = $11
    `
	var (
		topBidder           *uuid.UUID
		topAmount, topCeil  *string
		topIsProxy          bool
		closeReason, closed *string
	)
	if a.TopBid != nil {
		id := a.TopBid.BidderID
		amount := a.TopBid.Amount.String()
		topBidder, topAmount, topIsProxy = &id, &amount, a.TopBid.IsProxy
		if a.TopBid.IsProxy {
			ceiling := a.TopBid.Ceiling.String()
			topCeil = &ceiling
		}
	}
	if a.CloseReason != "" {
		reason := string(a.CloseReason)
		closeReason, closed = &reason, &a.ClosedBy
	}

	tag, err := tx.Exec(ctx, query,
		a.ID,
		a.CurrentPrice.String(),
		topBidder,
		topAmount,
		topIsProxy,
		topCeil,
		closeReason,
		a.ClosedAt,
		closed,
		a.UpdatedAt,
		ch.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update auction %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check auction %s: %w", a.ID, err)
	}
	if !exists {
		return domain.ErrAuctionNotFound
	}
	return domain.ErrVersionConflict
}

// ListDue returns open auctions whose window elapsed at now, oldest deadline first.
func (r *AuctionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
        SELECT id
        FROM auctions
        WHERE close_reason IS NULL AND finished_time <= $1
        ORDER BY finished_time ASC
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due auctions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan due auctions: %w", err)
	}
	return ids, nil
}

// normalizeTimes converts every timestamp read back from timestamptz columns to UTC,
// matching what the engine writes.
func normalizeTimes(a *domain.Auction) {
	a.StartTime = a.StartTime.UTC()
	a.FinishedTime = a.FinishedTime.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	a.BidHideTime = utcPtr(a.BidHideTime)
	a.ClosedAt = utcPtr(a.ClosedAt)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nullDecimalArg(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func parseNullDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func parseDecimal(s *string) (decimal.Decimal, error) {
	if s == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*s)
}
