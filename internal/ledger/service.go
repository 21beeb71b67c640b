package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/metrics"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Service is the store-credit ledger. Mutations must run inside the caller's
// transaction so the balance change commits with the business write that
// caused it. Callers hand the returned Movement to Committed once that
// transaction has committed.
type Service interface {
	GetBalance(ctx context.Context, customerID uuid.UUID) (int64, error)
	ReserveAndDebit(ctx context.Context, tx *gorm.DB, entry Entry) (Movement, error)
	Credit(ctx context.Context, tx *gorm.DB, entry Entry) (Movement, error)
	Committed(ctx context.Context, m Movement)
	History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.CreditLedgerEvent, error)
}

// Movement is one applied balance change. The zero value means nothing moved.
type Movement struct {
	CustomerID        uuid.UUID
	Type              enums.CreditEventType
	AmountCents       int64
	BalanceAfterCents int64
}

// Entry describes one balance movement and what caused it.
type Entry struct {
	CustomerID      uuid.UUID
	AmountCents     int64
	OrderID         *uuid.UUID
	ReturnRequestID *uuid.UUID
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.Domain
}

func NewService(repo Repository, logg *logger.Logger, m *metrics.Domain) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg, metrics: m}, nil
}

func (s *service) GetBalance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	if customerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	balance, err := s.repo.Balance(ctx, customerID)
	if err != nil {
		return 0, mapLookupError(err)
	}
	return balance, nil
}

func (s *service) ReserveAndDebit(ctx context.Context, tx *gorm.DB, entry Entry) (Movement, error) {
	if err := validateEntry(tx, entry); err != nil {
		return Movement{}, err
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.DebitIfSufficient(ctx, entry.CustomerID, entry.AmountCents)
	if err != nil {
		return Movement{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit store credit")
	}
	if !ok {
		balance, lookupErr := repo.Balance(ctx, entry.CustomerID)
		if lookupErr != nil {
			return Movement{}, mapLookupError(lookupErr)
		}
		return Movement{}, pkgerrors.New(pkgerrors.CodeInsufficientCredit, "store credit balance is lower than the requested amount").
			WithDetails(map[string]any{"balanceCents": balance, "requestedCents": entry.AmountCents})
	}

	return s.record(ctx, repo, enums.CreditEventOrderDebit, entry)
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, entry Entry) (Movement, error) {
	if err := validateEntry(tx, entry); err != nil {
		return Movement{}, err
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.Increment(ctx, entry.CustomerID, entry.AmountCents)
	if err != nil {
		return Movement{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit store credit")
	}
	if !ok {
		return Movement{}, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}

	return s.record(ctx, repo, enums.CreditEventRefundCredit, entry)
}

func (s *service) History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.CreditLedgerEvent, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	events, err := s.repo.ListEvents(ctx, customerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list credit history")
	}
	return events, nil
}

// record appends the ledger event inside the transaction. Metrics and logs
// wait for Committed.
func (s *service) record(ctx context.Context, repo Repository, kind enums.CreditEventType, entry Entry) (Movement, error) {
	balance, err := repo.Balance(ctx, entry.CustomerID)
	if err != nil {
		return Movement{}, mapLookupError(err)
	}
	event := &models.CreditLedgerEvent{
		CustomerID:        entry.CustomerID,
		Type:              kind,
		AmountCents:       entry.AmountCents,
		BalanceAfterCents: balance,
		OrderID:           entry.OrderID,
		ReturnRequestID:   entry.ReturnRequestID,
	}
	if err := repo.CreateEvent(ctx, event); err != nil {
		return Movement{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record credit ledger event")
	}
	return Movement{
		CustomerID:        entry.CustomerID,
		Type:              kind,
		AmountCents:       entry.AmountCents,
		BalanceAfterCents: balance,
	}, nil
}

func (s *service) Committed(ctx context.Context, m Movement) {
	if m.AmountCents == 0 {
		return
	}
	s.metrics.CreditMoved(string(m.Type), m.AmountCents)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"customer_id":   m.CustomerID.String(),
		"credit_event":  m.Type,
		"amount_cents":  m.AmountCents,
		"balance_cents": m.BalanceAfterCents,
	})
	s.logg.Info(logCtx, "store credit balance changed")
}

func validateEntry(tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "credit ledger mutation requires a transaction")
	}
	if entry.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if entry.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]any{"amountCents": entry.AmountCents})
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store credit balance")
}
