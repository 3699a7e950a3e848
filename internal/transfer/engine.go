package transfer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/funds-transfer-ledger/internal/models"
)

const instrumentationName = "github.com/sheikh-saqib/funds-transfer-ledger/internal/transfer"

// Ledger is the part of the account ledger the engine depends on.
type Ledger interface {
	GetAccount(ctx context.Context, id int64) (models.Account, error)
	ApplyTransfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal, guard models.TransferGuard) (models.TransferResult, error)
}

// Engine validates transfer requests and hands valid ones to the Ledger.
type Engine struct {
	ledger   Ledger
	logger   *zap.Logger
	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

func NewEngine(ledger Ledger, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	outcomes, err := otel.Meter(instrumentationName).Int64Counter(
		"transfer.outcomes",
		metric.WithDescription("Transfer requests by outcome kind"),
	)
	if err != nil {
		logger.Warn("transfer outcome counter unavailable", zap.Error(err))
	}

	return &Engine{
		ledger:   ledger,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		outcomes: outcomes,
	}
}

// ProcessTransfer validates a request to move amountRaw from senderID to
// recipientID and applies it when valid.
//
// Rejections and degraded acceptances are reported through the Outcome. The
// error is reserved for infrastructure faults (unknown sender, store failure,
// an account vanishing at commit time); in that case no balance has changed.
func (e *Engine) ProcessTransfer(ctx context.Context, senderID int64, amountRaw string, recipientID string) (out Outcome, err error) {
	ctx, span := e.tracer.Start(ctx, "transfer.process",
		trace.WithAttributes(attribute.Int64("transfer.sender_id", senderID)),
	)
	defer func() {
		e.observe(ctx, span, senderID, out, err)
		span.End()
	}()

	amt, ok := parseAmount(amountRaw)
	if !ok {
		return rejected(MsgNonNumeric), nil
	}

	sender, err := e.ledger.GetAccount(ctx, senderID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load sender %d: %w", senderID, err)
	}

	if out := validate(amt, sender.Balance); !out.OK() {
		return out, nil
	}

	recipient, found, err := e.resolveRecipient(ctx, senderID, recipientID)
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return warned(MsgRecipientUnavailable), nil
	}

	guard := func(lockedSender, _ models.Account) error {
		if out, ok := checkBalanceRules(amt, lockedSender.Balance); !ok {
			return &RejectedError{Outcome: out}
		}
		return nil
	}

	result, err := e.ledger.ApplyTransfer(ctx, sender.ID, recipient.ID, amt.value, guard)
	if err != nil {
		var rejection *RejectedError
		if errors.As(err, &rejection) {
			return rejection.Outcome, nil
		}
		return Outcome{}, fmt.Errorf("apply transfer %d -> %d: %w", sender.ID, recipient.ID, err)
	}

	return succeeded(fmt.Sprintf(MsgTransferred,
		result.Record.Amount.StringFixed(2),
		result.Record.SenderName,
		result.Record.RecipientName,
	)), nil
}

// resolveRecipient reports found=false for a blank, malformed or unknown id,
// and for the sender's own id.
func (e *Engine) resolveRecipient(ctx context.Context, senderID int64, raw string) (models.Account, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Account{}, false, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == senderID {
		return models.Account{}, false, nil
	}

	recipient, err := e.ledger.GetAccount(ctx, id)
	if errors.Is(err, models.ErrAccountNotFound) {
		return models.Account{}, false, nil
	}
	if err != nil {
		return models.Account{}, false, fmt.Errorf("load recipient %d: %w", id, err)
	}
	return recipient, true, nil
}

func (e *Engine) observe(ctx context.Context, span trace.Span, senderID int64, out Outcome, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transfer failed")
		e.logger.Error("transfer failed", zap.Int64("sender_id", senderID), zap.Error(err))
		e.count(ctx, "failure")
		return
	}

	span.SetAttributes(attribute.String("transfer.outcome", string(out.Kind)))
	e.logger.Debug("transfer processed",
		zap.Int64("sender_id", senderID),
		zap.String("outcome", string(out.Kind)),
		zap.String("message", out.Message),
	)
	e.count(ctx, string(out.Kind))
}

func (e *Engine) count(ctx context.Context, kind string) {
	if e.outcomes == nil {
		return
	}
	e.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
