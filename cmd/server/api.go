package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/catalog"
	"github.com/lmaretto/papertrade/internal/feed"
	"github.com/lmaretto/papertrade/internal/hub"
	"github.com/lmaretto/papertrade/internal/ledger"
	"github.com/lmaretto/papertrade/internal/model"
	"github.com/lmaretto/papertrade/internal/store"
)

// orderRequest is the body of buy and sell calls. Quantity is a decimal
// string; the execution price always comes from the latest-price cache.
type orderRequest struct {
	UserID   string `json:"user_id"`
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
}

type orderResponse struct {
	User        userResponse        `json:"user"`
	Transaction transactionResponse `json:"transaction"`
}

type userResponse struct {
	ID        string             `json:"id"`
	Credit    string             `json:"credit"`
	Positions []positionResponse `json:"positions"`
}

type positionResponse struct {
	Symbol      string `json:"symbol"`
	Quantity    string `json:"quantity"`
	AvgCost     string `json:"avg_cost"`
	LastUpdated string `json:"last_updated"`
}

type transactionResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price"`
	Total     string `json:"total"`
	Timestamp string `json:"timestamp"`
}

type quoteResponse struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Volume    string `json:"volume"`
	Timestamp int64  `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// createRoutes wires every endpoint onto one mux.
func createRoutes(
	db *pgxpool.Pool,
	cat *catalog.Catalog,
	h *hub.Hub,
	connector *feed.Connector,
	led *ledger.Ledger,
	st store.PortfolioStore,
	initialCredit decimal.Decimal,
	wsHandler http.Handler,
	logger *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /ws", wsHandler)
	mux.HandleFunc("GET /health", healthHandler(db, cat, h, connector))

	mux.HandleFunc("GET /api/quotes", func(w http.ResponseWriter, r *http.Request) {
		ticks := h.Snapshot()
		quotes := make([]quoteResponse, 0, len(ticks))
		for _, tick := range ticks {
			quotes = append(quotes, newQuoteResponse(tick))
		}
		writeJSON(w, http.StatusOK, quotes)
	})

	mux.HandleFunc("GET /api/quotes/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		symbol := r.PathValue("symbol")
		tick, ok := h.LatestTick(symbol)
		if !ok {
			writeError(w, http.StatusNotFound, "no quote for symbol")
			return
		}
		writeJSON(w, http.StatusOK, newQuoteResponse(tick))
	})

	mux.HandleFunc("POST /api/users", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := st.CreateUser(r.Context(), req.ID, initialCredit)
		if err != nil {
			logger.Error("failed to create account", "user", req.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create account")
			return
		}
		writeJSON(w, http.StatusCreated, newUserResponse(user))
	})

	mux.HandleFunc("GET /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		user, err := st.GetUser(r.Context(), r.PathValue("id"))
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			logger.Error("failed to load account", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load account")
			return
		}
		writeJSON(w, http.StatusOK, newUserResponse(user))
	})

	mux.HandleFunc("POST /api/orders/buy", orderHandler(led.Buy, logger))
	mux.HandleFunc("POST /api/orders/sell", orderHandler(led.Sell, logger))

	mux.HandleFunc("GET /api/users/{id}/transactions", func(w http.ResponseWriter, r *http.Request) {
		txns, err := led.Transactions(r.Context(), r.PathValue("id"))
		if err != nil {
			status, msg := orderErrorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("failed to load transactions", "error", err)
				msg = "failed to load transactions"
			}
			writeError(w, status, msg)
			return
		}
		out := make([]transactionResponse, 0, len(txns))
		for _, txn := range txns {
			out = append(out, newTransactionResponse(txn))
		}
		writeJSON(w, http.StatusOK, out)
	})

	return mux
}

// orderHandler adapts a ledger side (Buy or Sell) to HTTP.
func orderHandler(
	execute func(ctx context.Context, userID, symbol string, quantity decimal.Decimal) (ledger.Execution, error),
	logger *slog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		quantity, err := decimal.NewFromString(req.Quantity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "quantity must be a decimal number")
			return
		}

		exec, err := execute(r.Context(), req.UserID, req.Symbol, quantity)
		if err != nil {
			status, msg := orderErrorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("order failed", "user", req.UserID, "symbol", req.Symbol, "error", err)
				msg = "order failed"
			}
			writeError(w, status, msg)
			return
		}

		writeJSON(w, http.StatusOK, orderResponse{
			User:        newUserResponse(exec.User),
			Transaction: newTransactionResponse(exec.Transaction),
		})
	}
}

// orderErrorStatus maps ledger rejections to HTTP statuses. Anything
// unrecognized is a 500.
func orderErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrMissingField),
		errors.Is(err, ledger.ErrInvalidQuantity):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ledger.ErrUnknownSymbol),
		errors.Is(err, ledger.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ledger.ErrUnknownPrice),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientShares),
		errors.Is(err, ledger.ErrNoPosition),
		errors.Is(err, ledger.ErrMarketClosed):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, ""
	}
}

func healthHandler(db *pgxpool.Pool, cat *catalog.Catalog, h *hub.Hub, connector *feed.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		feedStats := connector.Stats()
		health.Components["feed"] = map[string]any{
			"status":       string(feedStats.Status),
			"ticks_parsed": feedStats.TicksParsed,
			"parse_errors": feedStats.ParseErrors,
			"reconnects":   feedStats.Reconnects,
		}
		if feedStats.Status == feed.StatusDegraded {
			health.Status = "degraded"
		}

		hubStats := h.Stats()
		health.Components["hub"] = map[string]any{
			"sessions":  hubStats.Sessions,
			"published": hubStats.Published,
			"delivered": hubStats.Delivered,
			"dropped":   hubStats.Dropped,
		}

		health.Components["catalog"] = map[string]any{
			"symbols":   cat.Len(),
			"loaded_at": cat.LoadedAt().UTC().Format(time.RFC3339),
		}
		if cat.Len() == 0 {
			health.Status = "degraded"
		}

		if health.Status == "unhealthy" {
			writeJSON(w, http.StatusServiceUnavailable, health)
			return
		}
		writeJSON(w, http.StatusOK, health)
	}
}

func newUserResponse(user model.User) userResponse {
	positions := make([]positionResponse, 0, len(user.Positions))
	for _, pos := range user.Positions {
		positions = append(positions, positionResponse{
			Symbol:      pos.Symbol,
			Quantity:    pos.Quantity.String(),
			AvgCost:     pos.AvgCost.String(),
			LastUpdated: pos.LastUpdated.UTC().Format(time.RFC3339),
		})
	}
	return userResponse{
		ID:        user.ID,
		Credit:    user.Credit.String(),
		Positions: positions,
	}
}

func newTransactionResponse(txn model.Transaction) transactionResponse {
	return transactionResponse{
		ID:        txn.ID.String(),
		UserID:    txn.UserID,
		Symbol:    txn.Symbol,
		Side:      string(txn.Side),
		Quantity:  txn.Quantity.String(),
		Price:     txn.Price.String(),
		Total:     txn.Total.String(),
		Timestamp: txn.Timestamp.UTC().Format(time.RFC3339),
	}
}

func newQuoteResponse(tick model.Tick) quoteResponse {
	return quoteResponse{
		Symbol:    tick.Symbol,
		Price:     tick.Price.String(),
		Volume:    tick.Volume.String(),
		Timestamp: tick.Timestamp,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
