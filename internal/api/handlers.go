package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/auth"
	"github.com/xtrntr/orderbook/internal/exchange"
	"github.com/xtrntr/orderbook/internal/logger"
	"github.com/xtrntr/orderbook/internal/marketdata"
	"github.com/xtrntr/orderbook/internal/models"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Exchange     *exchange.Exchange
	Refresher    *marketdata.Refresher
	AuthService  *auth.AuthService
	Log          logger.Interface
	MatchOnPlace bool
}

// NewHandler creates a new handler
func NewHandler(ex *exchange.Exchange, refresher *marketdata.Refresher, authService *auth.AuthService, log logger.Interface) *Handler {
	return &Handler{Exchange: ex, Refresher: refresher, AuthService: authService, Log: log}
}

type placeOrderRequest struct {
	Side     models.Side     `json:"side"`
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// PlaceOrder stores a new limit order and, when configured, matches its symbol
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.Exchange.PlaceOrder(r.Context(), req.Side, req.Symbol, req.Price, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := map[string]interface{}{
		"message":  "Order placed",
		"order_id": id,
	}
	if h.MatchOnPlace {
		trades, err := h.Exchange.MatchSymbol(r.Context(), req.Symbol)
		if err != nil {
			// the order itself is stored; the next pass will pick it up
			h.Log.ErrorContext(r.Context(), err, logger.NewField("order_id", id))
		}
		resp["trades"] = nonNil(trades)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// CancelOrder cancels an open or partially filled order
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := h.Exchange.CancelOrder(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order cancelled"})
}

// GetOrder retrieves one order
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.Exchange.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListOrders lists orders filtered by symbol, side and comma separated statuses
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.OrderFilter{Symbol: q.Get("symbol")}

	if side := q.Get("side"); side != "" {
		filter.Side = models.Side(side)
		if !filter.Side.Valid() {
			writeError(w, http.StatusBadRequest, "Side must be 'buy' or 'sell'")
			return
		}
	}
	if statuses := q.Get("status"); statuses != "" {
		for _, s := range strings.Split(statuses, ",") {
			status := models.Status(strings.TrimSpace(s))
			switch status {
			case models.StatusOpen, models.StatusPartial, models.StatusFilled, models.StatusCancelled:
				filter.Statuses = append(filter.Statuses, status)
			default:
				writeError(w, http.StatusBadRequest, "Unknown status "+string(status))
				return
			}
		}
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	filter.Limit = limit

	orders, err := h.Exchange.ListOrders(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Match runs a matching pass for one symbol, or for all symbols when none is given
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		trades, err := h.Exchange.MatchSymbol(r.Context(), symbol)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, exchange.MatchReport{Trades: nonNil(trades), Failed: []exchange.SymbolFailure{}})
		return
	}

	report, err := h.Exchange.MatchAll(r.Context())
	if err != nil {
		// passes for other symbols may have committed, so report them too
		h.Log.ErrorContext(r.Context(), err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":  "Storage unavailable",
			"trades": report.Trades,
			"failed": report.Failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetOrderBook retrieves the aggregated book of one symbol
func (h *Handler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.Exchange.OrderBook(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// GetTrades lists executions newest first
func (h *Handler) GetTrades(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	trades, err := h.Exchange.Trades(r.Context(), models.TradeFilter{Symbol: r.URL.Query().Get("symbol"), Limit: limit})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// GetStocks lists reference data
func (h *Handler) GetStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.Exchange.Stocks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stocks)
}

// GetSymbols lists the known stock symbols
func (h *Handler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.Exchange.Symbols(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, symbols)
}

// RefreshStocks pulls fresh reference prices
func (h *Handler) RefreshStocks(w http.ResponseWriter, r *http.Request) {
	if h.Refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "Market data is not configured")
		return
	}
	stocks, err := h.Refresher.Refresh(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stocks)
}

// Health reports whether the store answers
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Exchange.Ping(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail maps err onto a status code. Client errors carry their message;
// server side failures are logged and answered generically.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidOrderParameters):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrOrderNotCancellable), errors.Is(err, models.ErrInconsistentOrderState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrStorageUnavailable):
		h.Log.ErrorContext(r.Context(), err)
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
	default:
		h.Log.ErrorContext(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid order ID")
		return 0, false
	}
	return id, true
}

func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return 0, false
	}
	return limit, true
}

func nonNil(trades []models.Trade) []models.Trade {
	if trades == nil {
		return []models.Trade{}
	}
	return trades
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
