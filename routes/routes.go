package routes

import (
	"net/http"

	_ "github.com/Dosada05/carnival-system/docs"
	"github.com/Dosada05/carnival-system/handlers"
	"github.com/Dosada05/carnival-system/middleware"
	"github.com/Dosada05/carnival-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Carnivals     *handlers.CarnivalHandler
	Ownership     *handlers.OwnershipHandler
	Registrations *handlers.RegistrationHandler
	WebSocket     *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, h Handlers, jwtSecret string, allowedOrigins []string) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// WebSocket подписка на события карнавала
	router.Get("/ws/carnivals/{carnivalID}", h.WebSocket.ServeWs)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Auth.Login)

		r.Route("/carnivals", func(r chi.Router) {
			r.Get("/", h.Carnivals.ListCarnivals)
			r.With(authenticate).Post("/", h.Carnivals.CreateCarnival)

			r.Route("/{carnivalID}", func(r chi.Router) {
				r.Get("/", h.Carnivals.GetCarnival)
				r.Get("/overview", h.Carnivals.GetOverview)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Get("/registrations", h.Registrations.ListRegistrations)
					r.Delete("/", h.Carnivals.DeactivateCarnival)
					r.Patch("/fees", h.Carnivals.UpdateFees)
					r.Post("/promo-image", h.Carnivals.UploadPromoImage)

					r.Post("/claim", h.Ownership.Claim)
					r.Post("/release", h.Ownership.Release)

					r.Post("/registrations", h.Registrations.AddRegistration)
					r.Post("/register", h.Registrations.SelfRegister)
				})
			})
		})

		r.Route("/registrations/{registrationID}", func(r chi.Router) {
			r.Get("/players", h.Registrations.ListPlayers)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Patch("/", h.Registrations.UpdateRegistration)
				r.Delete("/", h.Registrations.Unregister)
				r.Post("/approve", h.Registrations.Approve)
				r.Post("/reject", h.Registrations.Reject)
				r.Post("/mark-paid", h.Registrations.MarkPaid)
				r.Post("/players", h.Registrations.AssignPlayer)
				r.With(middleware.Authorize(models.RoleAdmin)).Post("/recalculate", h.Registrations.RecalculateFees)
			})
		})

		r.Route("/assignments/{assignmentID}", func(r chi.Router) {
			r.Use(authenticate)
			r.Patch("/", h.Registrations.SetAttendance)
			r.Delete("/", h.Registrations.RemovePlayer)
		})

		// Маршруты администратора
		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))
			r.Post("/carnivals/{carnivalID}/claim", h.Ownership.AdminClaim)
		})
	})
}
