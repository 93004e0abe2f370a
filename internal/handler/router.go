package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wanderplan/wanderplan-go/internal/aisearch"
	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/infra/observability"
	"github.com/wanderplan/wanderplan-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the Wanderplan frontend.
func NewRouter(
	tripSvc *service.TripService,
	searchSvc *service.SearchService,
	catalogSvc *service.CatalogService,
	authSvc *service.AuthService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(catalogSvc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Authentication
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(authSvc, logger))
			r.Post("/login", authLoginHandler(authSvc, logger))
			r.Post("/refresh", authRefreshHandler(authSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Post("/logout", authLogoutHandler(authSvc, logger))
			})
		})

		// =============================================
		// Public: shared trips, community feed, catalog
		// =============================================
		r.Get("/shared/{token}", sharedTripHandler(tripSvc, logger))
		r.Get("/feed", feedHandler(tripSvc, logger))
		r.Get("/cities", listCitiesHandler(catalogSvc, logger))
		r.Get("/cities/{cityId}", getCityHandler(catalogSvc, logger))
		r.Get("/cities/{cityId}/activities", cityActivitiesHandler(catalogSvc, logger))
		r.Get("/metrics/search", searchMetricsHandler(metrics))

		// =============================================
		// Protected: trips, itinerary, expenses, AI search
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			r.Route("/trips", func(r chi.Router) {
				r.Post("/", createTripHandler(tripSvc, logger))
				r.Get("/", listTripsHandler(tripSvc, logger))

				r.Route("/{tripId}", func(r chi.Router) {
					r.Get("/", getTripHandler(tripSvc, logger))
					r.Put("/", updateTripHandler(tripSvc, logger))
					r.Delete("/", deleteTripHandler(tripSvc, logger))

					r.Get("/budget", budgetReportHandler(tripSvc, logger))

					r.Post("/sections", addSectionHandler(tripSvc, logger))
					r.Get("/sections", listSectionsHandler(tripSvc, logger))
					r.Patch("/sections/{sectionId}", updateSectionHandler(tripSvc, logger))
					r.Delete("/sections/{sectionId}", deleteSectionHandler(tripSvc, logger))

					r.Post("/expenses", addExpenseHandler(tripSvc, logger))
					r.Get("/expenses", listExpensesHandler(tripSvc, logger))
					r.Delete("/expenses/{expenseId}", deleteExpenseHandler(tripSvc, logger))

					r.Post("/share", createShareLinkHandler(tripSvc, logger))
					r.Delete("/share", revokeShareLinksHandler(tripSvc, logger))
					r.Post("/share/invite", shareInviteHandler(tripSvc, logger))

					r.Post("/generate", generateItineraryHandler(searchSvc, logger))
				})
			})

			r.Post("/search/travel", searchHandler(searchSvc, aisearch.DomainTravel, logger))
			r.Post("/search/activities", searchHandler(searchSvc, aisearch.DomainActivity, logger))
			r.Post("/search/stays", searchHandler(searchSvc, aisearch.DomainStay, logger))
		})
	})

	return r
}

// ============================================================
// Trips
// ============================================================

func createTripHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trips")
		defer span.End()

		var req domain.TripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		trip, err := svc.CreateTrip(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, trip)
	}
}

func listTripsHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/trips")
		defer span.End()

		trips, err := svc.ListTrips(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if trips == nil {
			trips = []domain.Trip{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"trips": trips})
	}
}

func getTripHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/trips/{tripId}")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		span.SetAttributes(attribute.String("trip.id", tripID))

		trip, err := svc.GetTrip(ctx, UserIDFromContext(ctx), tripID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, trip)
	}
}

func updateTripHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/trips/{tripId}")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		span.SetAttributes(attribute.String("trip.id", tripID))

		var req domain.TripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		trip, err := svc.UpdateTrip(ctx, UserIDFromContext(ctx), tripID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, trip)
	}
}

func deleteTripHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/trips/{tripId}")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		if err := svc.DeleteTrip(ctx, UserIDFromContext(ctx), tripID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Budget report
// ============================================================

func budgetReportHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/trips/{tripId}/budget")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		span.SetAttributes(attribute.String("trip.id", tripID))

		report, err := svc.GetBudgetReport(ctx, UserIDFromContext(ctx), tripID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}

// ============================================================
// Itinerary sections
// ============================================================

func addSectionHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trips/{tripId}/sections")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")

		var section domain.Section
		if err := json.NewDecoder(r.Body).Decode(&section); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := svc.AddSection(ctx, UserIDFromContext(ctx), tripID, &section)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func listSectionsHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/trips/{tripId}/sections")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		sections, err := svc.ListSections(ctx, UserIDFromContext(ctx), tripID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if sections == nil {
			sections = []domain.Section{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
	}
}

func updateSectionHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/trips/{tripId}/sections/{sectionId}")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		sectionID := chi.URLParam(r, "sectionId")

		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		section, err := svc.UpdateSection(ctx, UserIDFromContext(ctx), tripID, sectionID, fields)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, section)
	}
}

func deleteSectionHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/trips/{tripId}/sections/{sectionId}")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		sectionID := chi.URLParam(r, "sectionId")
		if err := svc.DeleteSection(ctx, UserIDFromContext(ctx), tripID, sectionID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Expenses
// ============================================================

func addExpenseHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trips/{tripId}/expenses")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")

		var req domain.ExpenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		expense, err := svc.AddExpense(ctx, UserIDFromContext(ctx), tripID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, expense)
	}
}

func listExpensesHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/trips/{tripId}/expenses")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		expenses, err := svc.ListExpenses(ctx, UserIDFromContext(ctx), tripID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if expenses == nil {
			expenses = []domain.Expense{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
	}
}

func deleteExpenseHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/trips/{tripId}/expenses/{expenseId}")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		expenseID := chi.URLParam(r, "expenseId")
		if err := svc.DeleteExpense(ctx, UserIDFromContext(ctx), tripID, expenseID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Sharing & community feed
// ============================================================

func createShareLinkHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trips/{tripId}/share")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		link, shareURL, err := svc.CreateShareLink(ctx, UserIDFromContext(ctx), tripID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"link": link,
			"url":  shareURL,
		})
	}
}

func revokeShareLinksHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/trips/{tripId}/share")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		if err := svc.RevokeShareLinks(ctx, UserIDFromContext(ctx), tripID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func shareInviteHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trips/{tripId}/share/invite")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")

		var req domain.ShareInviteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.SendShareInvite(ctx, UserIDFromContext(ctx), tripID, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "invite sent"})
	}
}

func sharedTripHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/shared/{token}")
		defer span.End()

		token := chi.URLParam(r, "token")
		shared, err := svc.GetSharedTrip(ctx, token)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, shared)
	}
}

func feedHandler(svc *service.TripService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/feed")
		defer span.End()

		items, err := svc.GetFeed(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if items == nil {
			items = []domain.FeedItem{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"feed": items})
	}
}

// ============================================================
// AI search & itinerary generation
// ============================================================

func searchHandler(svc *service.SearchService, dom aisearch.Domain, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/search/"+string(dom))
		defer span.End()
		span.SetAttributes(attribute.String("search.domain", string(dom)))

		var req domain.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.Search(ctx, dom, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func generateItineraryHandler(svc *service.SearchService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trips/{tripId}/generate")
		defer span.End()

		tripID := chi.URLParam(r, "tripId")
		span.SetAttributes(attribute.String("trip.id", tripID))

		var req domain.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		plan, err := svc.GenerateItinerary(ctx, UserIDFromContext(ctx), tripID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, plan)
	}
}

// ============================================================
// Catalog
// ============================================================

func listCitiesHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cities")
		defer span.End()

		cities, err := svc.ListCities(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if cities == nil {
			cities = []domain.City{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"cities": cities})
	}
}

func getCityHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cities/{cityId}")
		defer span.End()

		cityID := chi.URLParam(r, "cityId")
		city, err := svc.GetCity(ctx, cityID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, city)
	}
}

func cityActivitiesHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cities/{cityId}/activities")
		defer span.End()

		cityID := chi.URLParam(r, "cityId")
		activities, err := svc.ListCityActivities(ctx, cityID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if activities == nil {
			activities = []domain.CatalogActivity{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"activities": activities})
	}
}

// ============================================================
// Metrics & probes
// ============================================================

func searchMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSearchSnapshot())
	}
}

func healthzHandler(catalogSvc *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		status := "healthy"
		dbStatus := "healthy"
		if catalogSvc != nil {
			start := time.Now()
			_, err := catalogSvc.ListCities(ctx)
			latency := time.Since(start).Milliseconds()
			if err != nil {
				status = "degraded"
				dbStatus = "degraded"
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"status": status,
				"services": []map[string]any{
					{"name": "wanderplan-api", "status": "healthy", "last_checked": now},
					{"name": "supabase", "status": dbStatus, "latency_ms": latency, "last_checked": now},
				},
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"status": status})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func authRegisterHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/register")
		defer span.End()

		var req domain.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := authSvc.Register(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}

func authLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.Login(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func authRefreshHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/refresh")
		defer span.End()

		var req domain.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.Refresh(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func authLogoutHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := authSvc.Logout(ctx, userID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
