package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ledger-server/src/auth"
	"ledger-server/src/config"
	"ledger-server/src/feed"
	"ledger-server/src/handlers"
	"ledger-server/src/ledger"
	"ledger-server/src/middleware"
)

type Deps struct {
	Users           handlers.Users
	Tokens          *auth.Tokens
	Events          *auth.Events
	Sessions        *ledger.Registry
	Summaries       handlers.SummaryCache
	Hub             *feed.Hub
	Catalog         config.Catalog
	DefaultCurrency string
	AllowedOrigins  []string
	ReadOnly        bool
	Log             zerolog.Logger
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.CORSMiddleware(d.AllowedOrigins))
	r.Use(middleware.ReadOnlyMiddleware(d.ReadOnly))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", handlers.Signup(d.Users, d.Tokens, d.Events))
		r.Post("/login", handlers.Login(d.Users, d.Tokens, d.Events))

		// Protected routes
		r.With(middleware.JWTAuthMiddleware(d.Tokens)).Group(func(r chi.Router) {
			// Session
			r.Get("/session", handlers.Session(d.Users, d.Sessions))
			r.Post("/logout", handlers.Logout(d.Tokens, d.Events, d.Sessions))
			r.Post("/user/password", handlers.ChangePassword(d.Users))

			// Transactions
			r.Post("/sync", handlers.Sync(d.Sessions))
			r.Get("/transactions", handlers.ListTransactions(d.Sessions))
			r.Post("/transactions", handlers.CreateTransaction(d.Sessions, d.Catalog))
			r.Delete("/transactions/{id}", handlers.DeleteTransaction(d.Sessions))
			r.Get("/summary", handlers.Summary(d.Sessions, d.Summaries, d.DefaultCurrency))
			r.Get("/categories", handlers.Categories(d.Catalog))

			// Archives
			r.Get("/archives", handlers.ListArchives(d.Sessions))
			r.Post("/archives", handlers.ArchiveCurrent(d.Sessions))

			// Clear flow
			r.Post("/clear", handlers.BeginClear(d.Sessions))
			r.Post("/clear/archive", handlers.ClearArchive(d.Sessions))
			r.Post("/clear/skip", handlers.ClearSkip(d.Sessions))
			r.Post("/clear/confirm", handlers.ClearConfirm(d.Sessions))
			r.Delete("/clear", handlers.CancelClear(d.Sessions))

			// Snapshots
			r.Get("/snapshots", handlers.ListSnapshots(d.Sessions))
			r.Post("/snapshots", handlers.CreateSnapshot(d.Sessions))
			r.Get("/snapshots/{id}", handlers.GetSnapshot(d.Sessions))
			r.Delete("/snapshots/{id}", handlers.DeleteSnapshot(d.Sessions))

			// Change feed
			r.Get("/feed", handlers.Feed(d.Hub, d.Events, d.AllowedOrigins))
		})
	})

	return r
}
