package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/auctionhouse-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/auctionhouse-backend/api/controllers/analytics"
	auctioncontrollers "github.com/angelmondragon/auctionhouse-backend/api/controllers/auctions"
	cartcontrollers "github.com/angelmondragon/auctionhouse-backend/api/controllers/cart"
	"github.com/angelmondragon/auctionhouse-backend/api/controllers/deadletters"
	"github.com/angelmondragon/auctionhouse-backend/api/middleware"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics"
	"github.com/angelmondragon/auctionhouse-backend/internal/cart"
	"github.com/angelmondragon/auctionhouse-backend/internal/notifications"
	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	bidService auctioncontrollers.BidService,
	finalizer auctioncontrollers.Finalizer,
	cartService cart.Service,
	notificationsService notifications.Service,
	analyticsService analytics.Service,
	deadLetters deadletters.Store,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var bidGuards []func(http.Handler) http.Handler
	if redisClient != nil {
		policy := middleware.BidRateLimitPolicy{
			Window: cfg.BidRateLimit.Window,
			Limit:  cfg.BidRateLimit.Limit,
		}
		bidGuards = append(bidGuards,
			middleware.BidRateLimit(policy, redisClient, logg),
			middleware.Idempotency(redisClient, cfg.Eventing.HTTPIdempotencyTTL, logg),
		)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/auctions/{auctionId}", func(r chi.Router) {
			r.Get("/", auctioncontrollers.GetAuction(bidService, logg))
			r.Get("/bids", auctioncontrollers.ListBids(bidService, logg))
			r.With(bidGuards...).Post("/bids", auctioncontrollers.PlaceBid(bidService, logg))
		})

		r.Get("/cart", cartcontrollers.CartFetch(cartService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Post("/auctions/finalize", auctioncontrollers.AdminFinalize(finalizer, logg))
		r.Get("/analytics/stores/{storeId}/auctions", analyticscontrollers.AuctionActivity(analyticsService, logg))
		r.Get("/outbox/dead-letters", deadletters.List(deadLetters, logg))
		r.Post("/outbox/dead-letters/{eventId}/replay", deadletters.Replay(deadLetters, logg))
	})

	return r
}
