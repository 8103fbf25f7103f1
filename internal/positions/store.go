package positions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tradejournal/internal/apperr"
	"tradejournal/internal/model"
	"tradejournal/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so reads can run
// inside or outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const positionColumns = `id, user_id, coin, side, status, entries, closes,
	stop_loss_price, take_profit_price, comment, source,
	exchange, exchange_position_id, exchange_product_type, last_synced_at,
	created_at, updated_at`

func scanPosition(row pgx.Row) (model.Position, error) {
	var p model.Position
	var side, status string
	var entriesRaw, closesRaw []byte
	var stopLoss, takeProfit *decimal.Decimal
	var exchange, exchangePositionID, productType *string
	err := row.Scan(&p.ID, &p.UserID, &p.Coin, &side, &status, &entriesRaw, &closesRaw,
		&stopLoss, &takeProfit, &p.Comment, &p.Source,
		&exchange, &exchangePositionID, &productType, &p.LastSyncedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Side = types.PositionSide(side)
	p.Status = types.PositionStatus(status)
	p.StopLossPrice = stopLoss
	p.TakeProfitPrice = takeProfit
	if exchange != nil {
		p.Exchange = *exchange
	}
	if exchangePositionID != nil {
		p.ExchangePositionID = *exchangePositionID
	}
	if productType != nil {
		p.ExchangeProductType = types.ProductType(*productType)
	}
	if err := json.Unmarshal(entriesRaw, &p.Entries); err != nil {
		return p, fmt.Errorf("decode entries: %w", err)
	}
	if err := json.Unmarshal(closesRaw, &p.Closes); err != nil {
		return p, fmt.Errorf("decode closes: %w", err)
	}
	return p, nil
}

func encodeLegs(p model.Position) ([]byte, []byte, error) {
	entries := p.Entries
	if entries == nil {
		entries = []model.Entry{}
	}
	closes := p.Closes
	if closes == nil {
		closes = []model.Close{}
	}
	entriesRaw, err := json.Marshal(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("encode entries: %w", err)
	}
	closesRaw, err := json.Marshal(closes)
	if err != nil {
		return nil, nil, fmt.Errorf("encode closes: %w", err)
	}
	return entriesRaw, closesRaw, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Store) Insert(ctx context.Context, tx pgx.Tx, p model.Position) (model.Position, error) {
	entriesRaw, closesRaw, err := encodeLegs(p)
	if err != nil {
		return p, err
	}
	now := time.Now().UTC()
	err = tx.QueryRow(ctx, `insert into positions
		(user_id, coin, side, status, entries, closes,
		 stop_loss_price, take_profit_price, comment, source,
		 exchange, exchange_position_id, exchange_product_type, last_synced_at,
		 created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)
		returning id, created_at, updated_at`,
		p.UserID, p.Coin, string(p.Side), string(p.Status), entriesRaw, closesRaw,
		p.StopLossPrice, p.TakeProfitPrice, p.Comment, p.Source,
		nullIfEmpty(p.Exchange), nullIfEmpty(p.ExchangePositionID),
		nullIfEmpty(string(p.ExchangeProductType)), p.LastSyncedAt, now,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetForUpdate loads one position inside tx with a row lock. Every
// mutation goes through it, so concurrent writers to the same position
// serialize at the database rather than racing in memory.
func (s *Store) GetForUpdate(ctx context.Context, tx pgx.Tx, userID, positionID string) (model.Position, error) {
	row := tx.QueryRow(ctx, `select `+positionColumns+` from positions
		where id = $1 and user_id = $2 for update`, positionID, userID)
	p, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, apperr.NotFoundf("position not found")
	}
	return p, err
}

// GetForUpdateByExchangeKey locks the row representing one external
// position, keyed by (user, exchange, external id).
func (s *Store) GetForUpdateByExchangeKey(ctx context.Context, tx pgx.Tx, userID, exchange, exchangePositionID string) (model.Position, bool, error) {
	row := tx.QueryRow(ctx, `select `+positionColumns+` from positions
		where user_id = $1 and exchange = $2 and exchange_position_id = $3 for update`,
		userID, exchange, exchangePositionID)
	p, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}
	return p, true, nil
}

func (s *Store) Update(ctx context.Context, tx pgx.Tx, p model.Position) error {
	entriesRaw, closesRaw, err := encodeLegs(p)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `update positions set
		coin = $1, side = $2, status = $3, entries = $4, closes = $5,
		stop_loss_price = $6, take_profit_price = $7, comment = $8, source = $9,
		exchange = $10, exchange_position_id = $11, exchange_product_type = $12,
		last_synced_at = $13, updated_at = $14
		where id = $15 and user_id = $16`,
		p.Coin, string(p.Side), string(p.Status), entriesRaw, closesRaw,
		p.StopLossPrice, p.TakeProfitPrice, p.Comment, p.Source,
		nullIfEmpty(p.Exchange), nullIfEmpty(p.ExchangePositionID),
		nullIfEmpty(string(p.ExchangeProductType)), p.LastSyncedAt, time.Now().UTC(),
		p.ID, p.UserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("position not found")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, q querier, userID, positionID string) (model.Position, error) {
	row := q.QueryRow(ctx, `select `+positionColumns+` from positions
		where id = $1 and user_id = $2`, positionID, userID)
	p, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, apperr.NotFoundf("position not found")
	}
	return p, err
}

func (s *Store) ListByUser(ctx context.Context, q querier, userID string, status types.PositionStatus) ([]model.Position, error) {
	var rows pgx.Rows
	var err error
	if status == "" {
		rows, err = q.Query(ctx, `select `+positionColumns+` from positions
			where user_id = $1 order by created_at desc, id desc`, userID)
	} else {
		rows, err = q.Query(ctx, `select `+positionColumns+` from positions
			where user_id = $1 and status = $2 order by created_at desc, id desc`,
			userID, string(status))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, tx pgx.Tx, userID, positionID string) error {
	tag, err := tx.Exec(ctx, `delete from positions where id = $1 and user_id = $2`,
		positionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("position not found")
	}
	return nil
}
