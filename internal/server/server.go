package server

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/funds-transfer-ledger/internal/config"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/models"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/transfer"
)

type transferProcessor interface {
	ProcessTransfer(ctx context.Context, senderID int64, amountRaw string, recipientID string) (transfer.Outcome, error)
}

type ledgerReader interface {
	GetAccount(ctx context.Context, id int64) (models.Account, error)
	Accounts(ctx context.Context) ([]models.Account, error)
	Transfers(ctx context.Context) ([]models.TransferRecord, error)
}

// Server represents the HTTP server lifecycle.
type Server struct {
	app    *fiber.App
	logger *zap.Logger
	cfg    config.HTTPConfig
	engine transferProcessor
	ledger ledgerReader
}

// New constructs a Server and registers all routes.
func New(logger *zap.Logger, cfg config.HTTPConfig, engine transferProcessor, ledger ledgerReader) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger: logger,
		cfg:    cfg,
		engine: engine,
		ledger: ledger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "funds-transfer-ledger",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/accounts", s.handleListAccounts)
	s.app.Get("/accounts/:id", s.handleGetAccount)
	s.app.Get("/transfers", s.handleListTransfers)
	s.app.Post("/transfers/:senderId", s.handleTransfer)
}

// App exposes the underlying fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Start begins listening for HTTP traffic and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.cfg.Addr()))
	return s.app.Listen(s.cfg.Addr())
}

// Shutdown gracefully terminates all active connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.app.ShutdownWithContext(ctx)
}

type accountResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type transferRecordResponse struct {
	ID            int64     `json:"id"`
	Amount        string    `json:"amount"`
	Date          time.Time `json:"date"`
	SenderName    string    `json:"sender_name"`
	RecipientName string    `json:"recipient_name"`
}

func toAccountResponse(a models.Account) accountResponse {
	return accountResponse{ID: a.ID, Name: a.Name, Balance: a.Balance.StringFixed(2)}
}

// handleTransfer takes the raw form fields "amount" and "recipient_id".
// Rejected transfers answer 422; accepted ones (applied or not) answer 200.
func (s *Server) handleTransfer(c *fiber.Ctx) error {
	senderID, err := strconv.ParseInt(c.Params("senderId"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid sender id")
	}

	out, err := s.engine.ProcessTransfer(c.UserContext(), senderID, c.FormValue("amount"), c.FormValue("recipient_id"))
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if out.Kind == transfer.KindError {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(out)
}

func (s *Server) handleGetAccount(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	account, err := s.ledger.GetAccount(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toAccountResponse(account))
}

func (s *Server) handleListAccounts(c *fiber.Ctx) error {
	accounts, err := s.ledger.Accounts(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return c.JSON(out)
}

func (s *Server) handleListTransfers(c *fiber.Ctx) error {
	records, err := s.ledger.Transfers(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]transferRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, transferRecordResponse{
			ID:            r.ID,
			Amount:        r.Amount.StringFixed(2),
			Date:          r.CreatedAt,
			SenderName:    r.SenderName,
			RecipientName: r.RecipientName,
		})
	}
	return c.JSON(out)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		status, message = fiberErr.Code, fiberErr.Message
	case errors.Is(err, models.ErrAccountNotFound):
		status, message = fiber.StatusNotFound, "account not found"
	default:
		s.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(fiber.Map{"error": message})
}
