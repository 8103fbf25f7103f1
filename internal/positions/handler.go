package positions

import (
	"net/http"
	"time"

	"tradejournal/internal/apperr"
	"tradejournal/internal/httputil"
	"tradejournal/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type openPositionRequest struct {
	Coin              string           `json:"coin"`
	Side              string           `json:"side"`
	EntryPrice        decimal.Decimal  `json:"entry_price"`
	AmountInvestedUSD decimal.Decimal  `json:"amount_invested_usd"`
	Leverage          decimal.Decimal  `json:"leverage"`
	EntryDate         time.Time        `json:"entry_date"`
	StopLossPrice     *decimal.Decimal `json:"stop_loss_price"`
	TakeProfitPrice   *decimal.Decimal `json:"take_profit_price"`
	Comment           string           `json:"comment"`
}

func (req openPositionRequest) toOpenRequest() OpenRequest {
	return OpenRequest{
		Coin: req.Coin,
		Side: types.PositionSide(req.Side),
		Entry: EntryInput{
			EntryPrice:        req.EntryPrice,
			AmountInvestedUSD: req.AmountInvestedUSD,
			Leverage:          req.Leverage,
			EntryDate:         req.EntryDate,
		},
		StopLossPrice:   req.StopLossPrice,
		TakeProfitPrice: req.TakeProfitPrice,
		Comment:         req.Comment,
	}
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request, userID string) {
	var req openPositionRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	p, err := h.svc.Open(r.Context(), userID, req.toOpenRequest())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

type openClosedRequest struct {
	openPositionRequest
	ExitPrice decimal.Decimal `json:"exit_price"`
	ExitDate  time.Time       `json:"exit_date"`
}

func (h *Handler) OpenClosed(w http.ResponseWriter, r *http.Request, userID string) {
	var req openClosedRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	p, err := h.svc.OpenClosed(r.Context(), userID, OpenClosedRequest{
		OpenRequest: req.toOpenRequest(),
		ExitPrice:   req.ExitPrice,
		ExitDate:    req.ExitDate,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	status := types.PositionStatus(r.URL.Query().Get("status"))
	list, err := h.svc.List(r.Context(), userID, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"positions": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, userID, positionID string) {
	p, err := h.svc.Get(r.Context(), userID, positionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

type addEntryRequest struct {
	EntryPrice        decimal.Decimal `json:"entry_price"`
	AmountInvestedUSD decimal.Decimal `json:"amount_invested_usd"`
	Leverage          decimal.Decimal `json:"leverage"`
	EntryDate         time.Time       `json:"entry_date"`
}

func (h *Handler) AddSize(w http.ResponseWriter, r *http.Request, userID, positionID string) {
	var req addEntryRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	p, err := h.svc.AddSize(r.Context(), userID, positionID, EntryInput{
		EntryPrice:        req.EntryPrice,
		AmountInvestedUSD: req.AmountInvestedUSD,
		Leverage:          req.Leverage,
		EntryDate:         req.EntryDate,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

type sellRequest struct {
	ClosePrice decimal.Decimal  `json:"close_price"`
	CloseDate  time.Time        `json:"close_date"`
	CoinAmount *decimal.Decimal `json:"coin_amount"`
	USDAmount  *decimal.Decimal `json:"usd_amount"`
	Percent    *decimal.Decimal `json:"percent"`
}

// sellAmountFromFields enforces the exactly-one-of rule before the
// specifier reaches the service.
func sellAmountFromFields(coin, usd, percent *decimal.Decimal) (SellAmount, error) {
	var out SellAmount
	count := 0
	if coin != nil {
		out = SellAmount{Kind: SellAmountCoin, Value: *coin}
		count++
	}
	if usd != nil {
		out = SellAmount{Kind: SellAmountUSD, Value: *usd}
		count++
	}
	if percent != nil {
		out = SellAmount{Kind: SellAmountPercent, Value: *percent}
		count++
	}
	if count != 1 {
		return SellAmount{}, apperr.Validationf("exactly one of coin_amount, usd_amount or percent is required")
	}
	return out, nil
}

func (h *Handler) Sell(w http.ResponseWriter, r *http.Request, userID, positionID string) {
	var req sellRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	amount, err := sellAmountFromFields(req.CoinAmount, req.USDAmount, req.Percent)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.svc.Sell(r.Context(), userID, positionID, SellRequest{
		Price:  req.ClosePrice,
		Date:   req.CloseDate,
		Amount: amount,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request, userID, positionID string) {
	var req EditRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	p, err := h.svc.Edit(r.Context(), userID, positionID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, userID, positionID string) {
	if err := h.svc.Delete(r.Context(), userID, positionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request, userID string) {
	sum, err := h.svc.Summary(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}
