package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/xtrntr/orderbook/internal/logger"
)

// NewRouter wires the HTTP routes. Everything but the health check sits
// behind JWTAuthMiddleware.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(h.RequestID)
	r.Use(h.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)
		r.Post("/orders", h.PlaceOrder)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{id}", h.GetOrder)
		r.Delete("/orders/{id}", h.CancelOrder)
		r.Post("/match", h.Match)
		r.Get("/orderbook/{symbol}", h.GetOrderBook)
		r.Get("/trades", h.GetTrades)
		r.Get("/stocks", h.GetStocks)
		r.Get("/symbols", h.GetSymbols)
		r.Post("/stocks/refresh", h.RefreshStocks)
	})

	return r
}

// RequestID propagates X-Request-Id, generating one when absent
func (h *Handler) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequestID(r.Context(), r.Header.Get("X-Request-Id"))
		w.Header().Set("X-Request-Id", logger.RequestID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger writes one entry per request
func (h *Handler) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.Log.InfoContext(r.Context(), "http request",
			logger.NewField("method", r.Method),
			logger.NewField("path", r.URL.Path),
			logger.NewField("status", ww.Status()),
			logger.NewField("bytes", ww.BytesWritten()),
			logger.NewField("duration", time.Since(start).String()),
			logger.NewField("remote_addr", r.RemoteAddr),
		)
	})
}

// JWTAuthMiddleware verifies bearer tokens when authentication is enabled
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.AuthService == nil || !h.AuthService.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		subject, err := h.AuthService.Subject(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		h.Log.DebugContext(r.Context(), "request authenticated", logger.NewField("subject", subject))
		next.ServeHTTP(w, r)
	})
}
