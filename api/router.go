package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
)

// RouterOptions configures the HTTP surface
type RouterOptions struct {
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter mounts every route under /api
func NewRouter(ledger Ledger, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
	}

	h := NewHandler(ledger)
	auth := NewAuthenticator(opts.JWTSecret, ledger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.GetStats)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Get("/profile", h.Profile)
			r.Post("/profile/update-display-name", h.UpdateDisplayName)
			r.Get("/my-tickets", h.MyTickets)
			r.Get("/my-transactions", h.MyTransactions)
			r.Get("/my-balance-history", h.BalanceHistory)
			r.Post("/request-transaction", h.RequestTransaction)
			r.Post("/payment/token", h.PaymentToken)
			r.Post("/buy-tickets-bulk", h.BuyTicketsBulk)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Get("/users", h.ListUsers)
				r.Get("/transactions", h.ListTransactions)
				r.Post("/action-transaction", h.ActionTransaction)
				r.Post("/adjust-balance", h.AdjustBalance)
				r.Delete("/transaction/{id}", h.DeleteTransaction)
				r.Post("/update-ticket-price", h.UpdateTicketPrice)
				r.Post("/draw-winner", h.DrawWinner)
				r.Post("/claim-commission", h.ClaimCommission)
				r.Post("/auto-draw-settings", h.AutoDrawSettings)
			})
		})
	})

	return r
}

// requestLogger logs one line per request through logrus
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			log.WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("HTTP request")
		}()

		next.ServeHTTP(ww, r)
	})
}
