package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wavecresthq/wavecrest-backend/api/controllers"
	"github.com/wavecresthq/wavecrest-backend/api/middleware"
	"github.com/wavecresthq/wavecrest-backend/internal/availability"
	"github.com/wavecresthq/wavecrest-backend/internal/bookings"
	"github.com/wavecresthq/wavecrest-backend/internal/equipment"
	"github.com/wavecresthq/wavecrest-backend/internal/rentals"
	"github.com/wavecresthq/wavecrest-backend/internal/reservations"
	"github.com/wavecresthq/wavecrest-backend/pkg/config"
	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
)

// Deps carries everything the router wires into controllers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        controllers.Pinger
	Ledger       *availability.Ledger
	Reservations reservations.Service
	Rentals      rentals.Service
	Bookings     bookings.Service
	Equipment    equipment.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TenantContext(logg))

		r.Get("/availability", controllers.AvailabilityQuery(deps.Ledger, logg))

		r.Route("/equipment", func(r chi.Router) {
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.CategoryList(deps.Equipment, logg))
				r.Post("/", controllers.CategoryCreate(deps.Equipment, logg))
				r.Delete("/{categoryId}", controllers.CategoryDelete(deps.Equipment, logg))
			})
			r.Route("/variants", func(r chi.Router) {
				r.Get("/", controllers.VariantList(deps.Equipment, logg))
				r.Post("/", controllers.VariantCreate(deps.Equipment, logg))
				r.Patch("/{variantId}", controllers.VariantUpdate(deps.Equipment, logg))
			})
		})

		r.Route("/rentals", func(r chi.Router) {
			r.Get("/", controllers.RentalList(deps.Rentals, logg))
			r.Post("/", controllers.RentalCreate(deps.Reservations, logg))
			r.Get("/{rentalId}", controllers.RentalDetail(deps.Rentals, logg))
			r.Post("/{rentalId}/return", controllers.RentalReturn(deps.Rentals, logg))
			r.Post("/{rentalId}/cancel", controllers.RentalCancel(deps.Rentals, logg))
			r.Patch("/{rentalId}", controllers.RentalExtend(deps.Rentals, logg))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", controllers.BookingList(deps.Bookings, logg))
			r.Post("/", controllers.BookingCreate(deps.Reservations, logg))
			r.Get("/{bookingId}", controllers.BookingDetail(deps.Bookings, logg))
			r.Post("/{bookingId}/check-in", controllers.BookingCheckIn(deps.Reservations, logg))
			r.Post("/{bookingId}/cancel", controllers.BookingCancel(deps.Bookings, logg))
			r.Post("/{bookingId}/complete", controllers.BookingComplete(deps.Bookings, logg))
			r.Post("/{bookingId}/no-show", controllers.BookingNoShow(deps.Bookings, logg))
			r.Post("/{bookingId}/reschedule", controllers.BookingReschedule(deps.Bookings, logg))
			r.Patch("/{bookingId}/participants", controllers.BookingParticipants(deps.Bookings, logg))
		})
	})

	return r
}
