package positions

import (
	"context"
	"strings"
	"time"

	"tradejournal/internal/apperr"
	"tradejournal/internal/model"
	"tradejournal/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Service struct {
	pool  *pgxpool.Pool
	store *Store
	log   zerolog.Logger
}

func NewService(pool *pgxpool.Pool, store *Store, log zerolog.Logger) *Service {
	return &Service{pool: pool, store: store, log: log.With().Str("component", "positions").Logger()}
}

// PositionWithMetrics is the read shape handed to clients: the raw ledger
// plus everything derived from it.
type PositionWithMetrics struct {
	model.Position
	Metrics Metrics `json:"metrics"`
}

func withMetrics(p model.Position) PositionWithMetrics {
	return PositionWithMetrics{Position: p, Metrics: Compute(p.Side, p.Entries, p.Closes)}
}

type EntryInput struct {
	EntryPrice        decimal.Decimal
	AmountInvestedUSD decimal.Decimal
	Leverage          decimal.Decimal
	EntryDate         time.Time
}

func (in EntryInput) toEntry(now time.Time) (model.Entry, error) {
	if !in.EntryPrice.IsPositive() {
		return model.Entry{}, apperr.Validationf("entry_price must be positive")
	}
	if !in.AmountInvestedUSD.IsPositive() {
		return model.Entry{}, apperr.Validationf("amount_invested_usd must be positive")
	}
	lev := in.Leverage
	if lev.IsZero() {
		lev = one
	}
	if lev.LessThan(one) {
		return model.Entry{}, apperr.Validationf("leverage must be at least 1")
	}
	date := in.EntryDate
	if date.IsZero() {
		date = now
	}
	return model.Entry{
		EntryPrice:        in.EntryPrice,
		AmountInvestedUSD: in.AmountInvestedUSD,
		Leverage:          lev,
		EntryDate:         date.UTC(),
	}, nil
}

type OpenRequest struct {
	Coin            string
	Side            types.PositionSide
	Entry           EntryInput
	StopLossPrice   *decimal.Decimal
	TakeProfitPrice *decimal.Decimal
	Comment         string
}

type OpenClosedRequest struct {
	OpenRequest
	ExitPrice decimal.Decimal
	ExitDate  time.Time
}

type SellRequest struct {
	Price  decimal.Decimal
	Date   time.Time
	Amount SellAmount
}

type EditRequest struct {
	Comment         OptString  `json:"comment"`
	StopLossPrice   OptDecimal `json:"stop_loss_price"`
	TakeProfitPrice OptDecimal `json:"take_profit_price"`

	Coin              OptString  `json:"coin"`
	Side              OptString  `json:"side"`
	EntryPrice        OptDecimal `json:"entry_price"`
	AmountInvestedUSD OptDecimal `json:"amount_invested_usd"`
	Leverage          OptDecimal `json:"leverage"`
	EntryDate         OptTime    `json:"entry_date"`
	ExitPrice         OptDecimal `json:"exit_price"`
	ExitDate          OptTime    `json:"exit_date"`
}

func (r EditRequest) touchesTradeFields() bool {
	return r.Coin.Set || r.Side.Set || r.EntryPrice.Set || r.AmountInvestedUSD.Set ||
		r.Leverage.Set || r.EntryDate.Set || r.ExitPrice.Set || r.ExitDate.Set
}

func normalizeCoin(coin string) (string, error) {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return "", apperr.Validationf("coin is required")
	}
	return coin, nil
}

func validateOptionalPrice(name string, v *decimal.Decimal) error {
	if v != nil && !v.IsPositive() {
		return apperr.Validationf("%s must be positive", name)
	}
	return nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFoundf("position not found")
	}
	return nil
}

func (r OpenRequest) build(userID string, now time.Time) (model.Position, error) {
	coin, err := normalizeCoin(r.Coin)
	if err != nil {
		return model.Position{}, err
	}
	if !r.Side.Valid() {
		return model.Position{}, apperr.Validationf("side must be long or short")
	}
	if err := validateOptionalPrice("stop_loss_price", r.StopLossPrice); err != nil {
		return model.Position{}, err
	}
	if err := validateOptionalPrice("take_profit_price", r.TakeProfitPrice); err != nil {
		return model.Position{}, err
	}
	entry, err := r.Entry.toEntry(now)
	if err != nil {
		return model.Position{}, err
	}
	return model.Position{
		UserID:          userID,
		Coin:            coin,
		Side:            r.Side,
		Status:          types.PositionStatusActive,
		Entries:         []model.Entry{entry},
		StopLossPrice:   r.StopLossPrice,
		TakeProfitPrice: r.TakeProfitPrice,
		Comment:         strings.TrimSpace(r.Comment),
		Source:          types.SourceManual,
	}, nil
}

// Open records a new active position with a single entry.
func (s *Service) Open(ctx context.Context, userID string, req OpenRequest) (PositionWithMetrics, error) {
	p, err := req.build(userID, time.Now().UTC())
	if err != nil {
		return PositionWithMetrics{}, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PositionWithMetrics{}, err
	}
	defer tx.Rollback(ctx)
	p, err = s.store.Insert(ctx, tx, p)
	if err != nil {
		return PositionWithMetrics{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return PositionWithMetrics{}, err
	}
	return withMetrics(p), nil
}

// OpenClosed records a trade that was already fully realized: one entry and
// one synthetic close derived from the supplied exit price and date.
func (s *Service) OpenClosed(ctx context.Context, userID string, req OpenClosedRequest) (PositionWithMetrics, error) {
	now := time.Now().UTC()
	p, err := req.OpenRequest.build(userID, now)
	if err != nil {
		return PositionWithMetrics{}, err
	}
	if !req.ExitPrice.IsPositive() {
		return PositionWithMetrics{}, apperr.Validationf("exit_price must be positive")
	}
	exitDate := req.ExitDate
	if exitDate.IsZero() {
		exitDate = now
	}
	m := Compute(p.Side, p.Entries, nil)
	if !m.TotalEntryCoin.IsPositive() {
		return PositionWithMetrics{}, apperr.Validationf("position has zero total entry size")
	}
	p.Closes = []model.Close{closeForPortion(p.Side, m, m.TotalEntryCoin, req.ExitPrice, exitDate.UTC())}
	p.Status = types.PositionStatusClosed

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PositionWithMetrics{}, err
	}
	defer tx.Rollback(ctx)
	p, err = s.store.Insert(ctx, tx, p)
	if err != nil {
		return PositionWithMetrics{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return PositionWithMetrics{}, err
	}
	return withMetrics(p), nil
}

// AddSize appends an entry to an active position.
func (s *Service) AddSize(ctx context.Context, userID, positionID string, in EntryInput) (PositionWithMetrics, error) {
	if err := validateID(positionID); err != nil {
		return PositionWithMetrics{}, err
	}
	entry, err := in.toEntry(time.Now().UTC())
	if err != nil {
		return PositionWithMetrics{}, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PositionWithMetrics{}, err
	}
	defer tx.Rollback(ctx)
	p, err := s.store.GetForUpdate(ctx, tx, userID, positionID)
	if err != nil {
		return PositionWithMetrics{}, err
	}
	if p.Status != types.PositionStatusActive {
		return PositionWithMetrics{}, apperr.Conflictf("cannot add size to a closed position")
	}
	p.Entries = append(p.Entries, entry)
	if err := s.store.Update(ctx, tx, p); err != nil {
		return PositionWithMetrics{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return PositionWithMetrics{}, err
	}
	return withMetrics(p), nil
}

// Sell realizes part or all of an active position. The requested amount is
// clamped to the open coin amount, so overselling is impossible; the row
// lock taken by GetForUpdate makes that hold under concurrent sells too.
func (s *Service) Sell(ctx context.Context, userID, positionID string, req SellRequest) (PositionWithMetrics, error) {
	if err := validateID(positionID); err != nil {
		return PositionWithMetrics{}, err
	}
	if !req.Price.IsPositive() {
		return PositionWithMetrics{}, apperr.Validationf("close_price must be positive")
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PositionWithMetrics{}, err
	}
	defer tx.Rollback(ctx)
	p, err := s.store.GetForUpdate(ctx, tx, userID, positionID)
	if err != nil {
		return PositionWithMetrics{}, err
	}
	if p.Status != types.PositionStatusActive {
		return PositionWithMetrics{}, apperr.Conflictf("cannot sell a closed position")
	}
	m := Compute(p.Side, p.Entries, p.Closes)
	if m.OpenCoin.LessThanOrEqual(Epsilon) {
		return PositionWithMetrics{}, apperr.Conflictf("no open amount remains")
	}
	closeCoin, err := resolveSellCoin(m, req.Amount, req.Price)
	if err != nil {
		return PositionWithMetrics{}, err
	}
	p.Closes = append(p.Closes, closeForPortion(p.Side, m, closeCoin, req.Price, date.UTC()))
	if exhausts(m, closeCoin) {
		p.Status = types.PositionStatusClosed
	}
	if err := s.store.Update(ctx, tx, p); err != nil {
		return PositionWithMetrics{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return PositionWithMetrics{}, err
	}
	return withMetrics(p), nil
}

// Edit updates a position in place. Comment, stop loss and take profit are
// always editable; trade fields only on closed single-leg positions, in
// which case the single close is recomputed against the edited entry.
func (s *Service) Edit(ctx context.Context, userID, positionID string, req EditRequest) (PositionWithMetrics, error) {
	if err := validateID(positionID); err != nil {
		return PositionWithMetrics{}, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PositionWithMetrics{}, err
	}
	defer tx.Rollback(ctx)
	p, err := s.store.GetForUpdate(ctx, tx, userID, positionID)
	if err != nil {
		return PositionWithMetrics{}, err
	}
	if err := applyEdit(&p, req); err != nil {
		return PositionWithMetrics{}, err
	}
	if err := s.store.Update(ctx, tx, p); err != nil {
		return PositionWithMetrics{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return PositionWithMetrics{}, err
	}
	return withMetrics(p), nil
}

// Delete removes a position permanently.
func (s *Service) Delete(ctx context.Context, userID, positionID string) error {
	if err := validateID(positionID); err != nil {
		return err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := s.store.Delete(ctx, tx, userID, positionID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info().Str("position_id", positionID).Msg("position deleted")
	return nil
}

func (s *Service) Get(ctx context.Context, userID, positionID string) (PositionWithMetrics, error) {
	if err := validateID(positionID); err != nil {
		return PositionWithMetrics{}, err
	}
	p, err := s.store.Get(ctx, s.pool, userID, positionID)
	if err != nil {
		return PositionWithMetrics{}, err
	}
	return withMetrics(p), nil
}

func (s *Service) List(ctx context.Context, userID string, status types.PositionStatus) ([]PositionWithMetrics, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validationf("status must be active or closed")
	}
	list, err := s.store.ListByUser(ctx, s.pool, userID, status)
	if err != nil {
		return nil, err
	}
	out := make([]PositionWithMetrics, 0, len(list))
	for _, p := range list {
		out = append(out, withMetrics(p))
	}
	return out, nil
}

// ExternalState is the canonical single-entry representation of one
// externally held position, produced by the reconciliation mapping.
type ExternalState struct {
	Exchange    string
	ExternalID  string
	Coin        string
	Side        types.PositionSide
	ProductType types.ProductType
	Entry       model.Entry
	SyncedAt    time.Time
}

// UpsertExternal replaces or creates the ledger row for one external
// position. Replace, not merge: the feed reports current net state, so the
// row's entries become the single synthetic entry and its closes are
// cleared. Unrelated manually entered positions are untouched.
func (s *Service) UpsertExternal(ctx context.Context, userID string, ext ExternalState) (bool, error) {
	syncedAt := ext.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)
	p, found, err := s.store.GetForUpdateByExchangeKey(ctx, tx, userID, ext.Exchange, ext.ExternalID)
	if err != nil {
		return false, err
	}
	if found {
		p.Coin = ext.Coin
		p.Side = ext.Side
		p.Status = types.PositionStatusActive
		p.Entries = []model.Entry{ext.Entry}
		p.Closes = nil
		p.ExchangeProductType = ext.ProductType
		p.LastSyncedAt = &syncedAt
		if err := s.store.Update(ctx, tx, p); err != nil {
			return false, err
		}
		return false, tx.Commit(ctx)
	}
	_, err = s.store.Insert(ctx, tx, model.Position{
		UserID:              userID,
		Coin:                ext.Coin,
		Side:                ext.Side,
		Status:              types.PositionStatusActive,
		Entries:             []model.Entry{ext.Entry},
		Source:              ext.Exchange,
		Exchange:            ext.Exchange,
		ExchangePositionID:  ext.ExternalID,
		ExchangeProductType: ext.ProductType,
		LastSyncedAt:        &syncedAt,
	})
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// exhausts reports whether realizing closeCoin leaves no open amount
// behind. Coin amounts come out of divisions, so dust below the tolerance
// counts as fully realized.
func exhausts(m Metrics, closeCoin decimal.Decimal) bool {
	return m.OpenCoin.Sub(closeCoin).LessThanOrEqual(Epsilon)
}

// resolveSellCoin turns a sell-amount specifier into a coin quantity,
// clamped to the open amount.
func resolveSellCoin(m Metrics, amount SellAmount, price decimal.Decimal) (decimal.Decimal, error) {
	if !amount.Value.IsPositive() {
		return decimal.Zero, apperr.Validationf("sell amount must be positive")
	}
	var coin decimal.Decimal
	switch amount.Kind {
	case SellAmountCoin:
		coin = amount.Value
	case SellAmountUSD:
		coin = amount.Value.Div(price)
	case SellAmountPercent:
		coin = m.OpenCoin.Mul(amount.Value).Div(hundred)
	default:
		return decimal.Zero, apperr.Validationf("exactly one of coin_amount, usd_amount or percent is required")
	}
	if !coin.IsPositive() {
		return decimal.Zero, apperr.Validationf("sell amount must be positive")
	}
	if coin.GreaterThan(m.OpenCoin) {
		coin = m.OpenCoin
	}
	return coin, nil
}

// closeForPortion builds the close record realizing closeCoin at price.
// The pnl percent is measured against the margin share backing this
// portion, not the whole position's margin.
func closeForPortion(side types.PositionSide, m Metrics, closeCoin, price decimal.Decimal, date time.Time) model.Close {
	pnl := decimal.Zero
	if m.AvgEntryPrice != nil {
		diff := price.Sub(*m.AvgEntryPrice)
		if side == types.PositionSideShort {
			diff = diff.Neg()
		}
		pnl = diff.Mul(closeCoin)
	}
	marginShare := decimal.Zero
	if m.TotalEntryCoin.IsPositive() {
		marginShare = m.TotalMarginUSD.Mul(closeCoin).Div(m.TotalEntryCoin)
	}
	pct := decimal.Zero
	if marginShare.IsPositive() {
		pct = pnl.Div(marginShare).Mul(hundred)
	}
	return model.Close{
		ClosePrice:      price,
		CloseCoinAmount: closeCoin,
		CloseUSDAmount:  closeCoin.Mul(price),
		CloseDate:       date,
		PnlUSD:          pnl,
		PnlPercent:      pct,
	}
}

// applyEdit mutates p according to req, enforcing the single-leg rule for
// trade-field edits.
func applyEdit(p *model.Position, req EditRequest) error {
	if req.touchesTradeFields() {
		if p.Status != types.PositionStatusClosed || len(p.Entries) != 1 || len(p.Closes) != 1 {
			return apperr.Conflictf("trade fields are editable only on closed positions with a single entry and close")
		}
		if req.Coin.Set {
			if !req.Coin.Valid {
				return apperr.Validationf("coin cannot be null")
			}
			coin, err := normalizeCoin(req.Coin.Value)
			if err != nil {
				return err
			}
			p.Coin = coin
		}
		if req.Side.Set {
			side := types.PositionSide(req.Side.Value)
			if !req.Side.Valid || !side.Valid() {
				return apperr.Validationf("side must be long or short")
			}
			p.Side = side
		}
		entry := p.Entries[0]
		if req.EntryPrice.Set {
			if !req.EntryPrice.Valid || !req.EntryPrice.Value.IsPositive() {
				return apperr.Validationf("entry_price must be positive")
			}
			entry.EntryPrice = req.EntryPrice.Value
		}
		if req.AmountInvestedUSD.Set {
			if !req.AmountInvestedUSD.Valid || !req.AmountInvestedUSD.Value.IsPositive() {
				return apperr.Validationf("amount_invested_usd must be positive")
			}
			entry.AmountInvestedUSD = req.AmountInvestedUSD.Value
		}
		if req.Leverage.Set {
			if !req.Leverage.Valid || req.Leverage.Value.LessThan(one) {
				return apperr.Validationf("leverage must be at least 1")
			}
			entry.Leverage = req.Leverage.Value
		}
		if req.EntryDate.Set {
			if !req.EntryDate.Valid || req.EntryDate.Value.IsZero() {
				return apperr.Validationf("entry_date must be a valid timestamp")
			}
			entry.EntryDate = req.EntryDate.Value.UTC()
		}
		exitPrice := p.Closes[0].ClosePrice
		if req.ExitPrice.Set {
			if !req.ExitPrice.Valid || !req.ExitPrice.Value.IsPositive() {
				return apperr.Validationf("exit_price must be positive")
			}
			exitPrice = req.ExitPrice.Value
		}
		exitDate := p.Closes[0].CloseDate
		if req.ExitDate.Set {
			if !req.ExitDate.Valid || req.ExitDate.Value.IsZero() {
				return apperr.Validationf("exit_date must be a valid timestamp")
			}
			exitDate = req.ExitDate.Value.UTC()
		}
		p.Entries[0] = entry
		m := Compute(p.Side, p.Entries, nil)
		if !m.TotalEntryCoin.IsPositive() {
			return apperr.Validationf("position has zero total entry size")
		}
		p.Closes[0] = closeForPortion(p.Side, m, m.TotalEntryCoin, exitPrice, exitDate)
	}

	if req.Comment.Set {
		if req.Comment.Valid {
			p.Comment = strings.TrimSpace(req.Comment.Value)
		} else {
			p.Comment = ""
		}
	}
	if req.StopLossPrice.Set {
		if req.StopLossPrice.Valid {
			if !req.StopLossPrice.Value.IsPositive() {
				return apperr.Validationf("stop_loss_price must be positive")
			}
			v := req.StopLossPrice.Value
			p.StopLossPrice = &v
		} else {
			p.StopLossPrice = nil
		}
	}
	if req.TakeProfitPrice.Set {
		if req.TakeProfitPrice.Valid {
			if !req.TakeProfitPrice.Value.IsPositive() {
				return apperr.Validationf("take_profit_price must be positive")
			}
			v := req.TakeProfitPrice.Value
			p.TakeProfitPrice = &v
		} else {
			p.TakeProfitPrice = nil
		}
	}
	return nil
}
