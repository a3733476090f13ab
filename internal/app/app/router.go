package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/justinas/alice"
	"ppobmart/internal/app/blob"
	"ppobmart/internal/app/handler"
	middleware2 "ppobmart/internal/app/middleware"
)

func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware2.Log(a.logger))

	admin := alice.New(middleware2.Auth(a.session), middleware2.NoCache)

	ch := handler.NewCatalogHandler(a.catalog)
	th := handler.NewTransactionHandler(a.lifecycle, a.proofs, a.catalog)
	ah := handler.NewAdminHandler(a.lifecycle)
	oh := handler.NewOperatorHandler(a.operators, a.session)
	gh := handler.NewGatewayHandler(a.gateway)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", ch.Categories)
		r.Get("/products", ch.Products)
		r.Get("/products/{code}", ch.Product)
		r.Post("/inquiry", th.Inquiry)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", th.Create)
			r.Get("/{code}", th.Get)
			r.Post("/{code}/payment-proof", th.UploadProof)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", oh.Login)

			r.Group(func(r chi.Router) {
				r.Use(admin.Then)
				r.Post("/logout", oh.Logout)
				r.Get("/gateway/status", gh.Status)

				r.Route("/transactions", func(r chi.Router) {
					r.Get("/", ah.List)
					r.Get("/pending", ah.Pending)
					r.Get("/{code}/events", ah.Events)
					r.Post("/{code}/approve", ah.Approve)
					r.Post("/{code}/reject", ah.Reject)
					r.Post("/{code}/reconcile", ah.Reconcile)
					r.Post("/{code}/retry", ah.Retry)
					r.Patch("/{code}/status", ah.UpdateStatus)
				})
			})
		})
	})

	if local, ok := a.blobs.(*blob.Local); ok {
		prefix := local.URLPrefix()
		r.Handle(prefix+"*", middleware2.NoCache(http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir())))))
	}

	return r
}
