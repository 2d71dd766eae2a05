package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nmrios/CanchaBack/internal/config"
	"github.com/nmrios/CanchaBack/internal/handlers"
	"github.com/nmrios/CanchaBack/internal/middleware"
	"github.com/nmrios/CanchaBack/internal/repository"
	"github.com/nmrios/CanchaBack/internal/services"
)

// RegisterRoutes wires repositories, services and handlers onto the app and
// returns the payment service so the caller can hand it to the sweeper.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) *services.PaymentService {
	slotRepo := repository.NewSlotRepository(db)
	holdRepo := repository.NewHoldRepository(db)
	clientRepo := repository.NewClientRepository(db)
	userRepo := repository.NewUserRepository(db)
	courtRepo := repository.NewCourtRepository(db)

	reservationService := services.NewReservationService(db, slotRepo, clientRepo, userRepo, courtRepo)
	paymentService := services.NewPaymentService(db, holdRepo, slotRepo, clientRepo, cfg.HoldWindow)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	reservationHandler := handlers.NewReservationHandler(reservationService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)

	protected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	slots := protected.Group("/slots")
	slots.Post("", reservationHandler.CreateSlot)
	slots.Get("/:id", reservationHandler.GetSlot)
	slots.Post("/:id/reserve", reservationHandler.RegisterReservation)
	slots.Patch("/:id/reservation", reservationHandler.ModifyReservation)
	slots.Delete("/:id/reservation", reservationHandler.CancelReservation)
	slots.Post("/:id/block", reservationHandler.BlockSlot)
	slots.Post("/:id/close", reservationHandler.CloseSlot)
	slots.Post("/:id/checkout", paymentHandler.BeginCheckout)

	clients := protected.Group("/clients")
	clients.Get("/:id/reservations", reservationHandler.ListClientReservations)

	payments := protected.Group("/payments")
	payments.Get("/:id", paymentHandler.GetHold)
	payments.Post("/:id/confirm", paymentHandler.CompleteCheckout)
	payments.Post("/:id/fail", paymentHandler.FailHold)

	entries := protected.Group("/entries")
	entries.Post("/:id/holds", paymentHandler.OpenEntryHold)

	return paymentService
}
