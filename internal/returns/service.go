package returns

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/internal/ledger"
	"github.com/casamarket/casa-backend/internal/orders"
	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/db/types"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/metrics"
	"github.com/casamarket/casa-backend/pkg/outbox"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

const uniqueReturnPerItem = "ux_return_requests_order_item"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// EvidenceStore writes an uploaded file and returns its public URL.
type EvidenceStore interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
}

// PaymentReverser refunds ORIGINAL_PAYMENT returns through the payment
// provider. It runs inside the approval transaction.
type PaymentReverser interface {
	Reverse(ctx context.Context, request models.ReturnRequest) error
}

// DecisionNotifier tells the customer about a decision after commit.
type DecisionNotifier interface {
	ReturnDecided(ctx context.Context, customer models.Customer, request models.ReturnRequest, status string) error
}

// Service runs the two-gate return workflow.
type Service interface {
	RequestReturn(ctx context.Context, input RequestReturnInput) (*ReturnDTO, error)
	UploadEvidence(ctx context.Context, customerID uuid.UUID, filename, contentType string, body io.Reader) (string, error)
	ApproveBySeller(ctx context.Context, requestID, sellerID uuid.UUID) (*ReturnDTO, error)
	RejectBySeller(ctx context.Context, requestID, sellerID uuid.UUID, note string) (*ReturnDTO, error)
	ApproveByAdmin(ctx context.Context, requestID, adminID uuid.UUID, note string) (*ReturnDTO, error)
	RejectByAdmin(ctx context.Context, requestID, adminID uuid.UUID, note string) (*ReturnDTO, error)
	Get(ctx context.Context, requestID uuid.UUID, viewer orders.Viewer) (*ReturnDTO, error)
	ListPendingForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*pagination.Page[ReturnDTO], error)
	ListForAdmin(ctx context.Context, params pagination.Params) (*pagination.Page[ReturnDTO], error)
}

type Deps struct {
	Repo      Repository
	Tx        txRunner
	Ledger    ledger.Service
	Outbox    outbox.Emitter
	Evidence  EvidenceStore
	Reverser  PaymentReverser
	Notifier  DecisionNotifier
	Customers customerLoader
	Logger    *logger.Logger
	Metrics   *metrics.Domain
}

type service struct {
	repo      Repository
	tx        txRunner
	ledger    ledger.Service
	outbox    outbox.Emitter
	evidence  EvidenceStore
	reverser  PaymentReverser
	notifier  DecisionNotifier
	customers customerLoader
	logg      *logger.Logger
	metrics   *metrics.Domain
}

func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Reverser == nil {
		deps.Reverser = NoopReverser{Logger: deps.Logger}
	}
	return &service{
		repo:      deps.Repo,
		tx:        deps.Tx,
		ledger:    deps.Ledger,
		outbox:    deps.Outbox,
		evidence:  deps.Evidence,
		reverser:  deps.Reverser,
		notifier:  deps.Notifier,
		customers: deps.Customers,
		logg:      deps.Logger,
		metrics:   deps.Metrics,
	}, nil
}

func (s *service) RequestReturn(ctx context.Context, input RequestReturnInput) (*ReturnDTO, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	var created models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItem(ctx, input.OrderItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order item")
		}
		if item.Order == nil || item.Order.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order item does not belong to customer")
		}
		if item.Status != enums.OrderItemStatusFulfilled {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "only fulfilled items can be returned").
				WithDetails(map[string]any{"status": item.Status})
		}

		amount := item.ItemTotalCents
		if input.RefundAmountCents != nil {
			amount = *input.RefundAmountCents
		}
		if amount <= 0 || amount > item.ItemTotalCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be between 1 and the item total").
				WithDetails(map[string]any{"refundAmountCents": amount, "itemTotalCents": item.ItemTotalCents})
		}

		created = models.ReturnRequest{
			OrderItemID:          item.ID,
			CustomerID:           input.CustomerID,
			SellerID:             item.SellerID,
			Reason:               input.Reason,
			EvidenceURLs:         types.StringList(input.EvidenceURLs),
			SellerApprovalStatus: enums.ApprovalPending,
			AdminApprovalStatus:  enums.ApprovalPending,
			RefundMethod:         input.RefundMethod,
			RefundAmountCents:    amount,
		}
		if err := repo.Create(ctx, &created); err != nil {
			if db.IsUniqueViolation(err, uniqueReturnPerItem) {
				return pkgerrors.New(pkgerrors.CodeConflict, "a return already exists for this order item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create return request")
		}
		if err := repo.SetItemReturnStatus(ctx, item.ID, enums.ItemReturnRequested, false); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order item return requested")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{ID: input.CustomerID, Role: string(enums.RoleCustomer)},
			Data: outbox.ReturnRequestedEvent{
				ReturnRequestID:   created.ID,
				OrderItemID:       created.OrderItemID,
				CustomerID:        created.CustomerID,
				SellerID:          created.SellerID,
				RefundMethod:      string(created.RefundMethod),
				RefundAmountCents: created.RefundAmountCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"return_request_id": created.ID.String(),
		"order_item_id":     created.OrderItemID.String(),
		"refund_method":     created.RefundMethod,
	})
	s.logg.Info(logCtx, "return requested")
	dto := NewReturnDTO(created)
	return &dto, nil
}

func (s *service) UploadEvidence(ctx context.Context, customerID uuid.UUID, filename, contentType string, body io.Reader) (string, error) {
	if customerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if s.evidence == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "evidence uploads are not configured")
	}
	if body == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	name, err := evidenceObjectName(customerID, filename, contentType)
	if err != nil {
		return "", err
	}
	url, err := s.evidence.Upload(ctx, name, contentType, body)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "object", name), "evidence upload failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeUploadFailed, err, "upload evidence")
	}
	return url, nil
}

func (s *service) ApproveBySeller(ctx context.Context, requestID, sellerID uuid.UUID) (*ReturnDTO, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	return s.decide(ctx, decision{
		requestID: requestID,
		gate:      GateSeller,
		approve:   true,
		actor:     outbox.ActorRef{ID: sellerID, Role: string(enums.RoleSeller)},
	})
}

func (s *service) RejectBySeller(ctx context.Context, requestID, sellerID uuid.UUID, note string) (*ReturnDTO, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	n, err := decisionNote(note, true)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, decision{
		requestID: requestID,
		gate:      GateSeller,
		note:      n,
		actor:     outbox.ActorRef{ID: sellerID, Role: string(enums.RoleSeller)},
	})
}

func (s *service) ApproveByAdmin(ctx context.Context, requestID, adminID uuid.UUID, note string) (*ReturnDTO, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	n, err := decisionNote(note, false)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, decision{
		requestID: requestID,
		gate:      GateAdmin,
		approve:   true,
		note:      n,
		actor:     outbox.ActorRef{ID: adminID, Role: string(enums.RoleAdmin)},
	})
}

func (s *service) RejectByAdmin(ctx context.Context, requestID, adminID uuid.UUID, note string) (*ReturnDTO, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	n, err := decisionNote(note, true)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, decision{
		requestID: requestID,
		gate:      GateAdmin,
		note:      n,
		actor:     outbox.ActorRef{ID: adminID, Role: string(enums.RoleAdmin)},
	})
}

type decision struct {
	requestID uuid.UUID
	gate      Gate
	approve   bool
	note      *string
	actor     outbox.ActorRef
}

func (d decision) target() enums.ApprovalStatus {
	if d.approve {
		return enums.ApprovalApproved
	}
	return enums.ApprovalRejected
}

// refundsHere reports whether this decision is the one that pays out:
// store credit at seller approval, original payment at final approval.
func (d decision) refundsHere(method enums.RefundMethod) bool {
	if !d.approve {
		return false
	}
	if d.gate == GateSeller {
		return method == enums.RefundMethodStoreCredit
	}
	return method == enums.RefundMethodOriginalPayment
}

// decide moves one approval gate out of PENDING. The gate CAS, the item
// marker, the refund and the outbox event commit together; losing the CAS
// to a concurrent decision reports Conflict and applies nothing.
func (s *service) decide(ctx context.Context, d decision) (*ReturnDTO, error) {
	if d.requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}

	var (
		request  *models.ReturnRequest
		refunded bool
		credited ledger.Movement
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		request, err = repo.FindByID(ctx, d.requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load return request")
		}
		if d.gate == GateSeller && request.SellerID != d.actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "return request does not belong to seller")
		}
		if err := checkGate(request, d.gate); err != nil {
			return err
		}

		to := d.target()
		ok, err := repo.CompareAndSetGate(ctx, request.ID, d.gate, to, d.note)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update return approval")
		}
		if !ok {
			return alreadyDecided(d.gate)
		}
		if d.gate == GateSeller {
			request.SellerApprovalStatus = to
			request.SellerNote = d.note
		} else {
			request.AdminApprovalStatus = to
			request.AdminNote = d.note
		}

		itemStatus := enums.ItemReturnRejected
		if d.approve {
			itemStatus = enums.ItemReturnApproved
		}
		if err := repo.SetItemReturnStatus(ctx, request.OrderItemID, itemStatus, d.approve); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order item return status")
		}

		if d.refundsHere(request.RefundMethod) {
			refunded, credited, err = s.refund(ctx, tx, repo, request)
			if err != nil {
				return err
			}
		}

		var refundedCents int64
		if refunded {
			refundedCents = request.RefundAmountCents
		}
		actor := d.actor
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnDecided,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   request.ID,
			Actor:         &actor,
			Data: outbox.ReturnDecidedEvent{
				ReturnRequestID: request.ID,
				Gate:            string(d.gate),
				Decision:        string(to),
				Status:          string(DeriveStatus(request.SellerApprovalStatus, request.AdminApprovalStatus)),
				RefundedCents:   refundedCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.ledger.Committed(ctx, credited)
	s.metrics.ReturnDecided(string(d.gate), d.approve)
	status := DeriveStatus(request.SellerApprovalStatus, request.AdminApprovalStatus)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"return_request_id": request.ID.String(),
		"gate":              d.gate,
		"decision":          d.target(),
		"status":            status,
		"refunded":          refunded,
	})
	s.logg.Info(logCtx, "return decision recorded")
	s.notify(logCtx, *request, status)

	dto := NewReturnDTO(*request)
	return &dto, nil
}

// refund pays the request out once. refunded_at is claimed by CAS first so a
// replayed approval can never credit twice.
// The returned Movement is non-zero only for store-credit refunds.
func (s *service) refund(ctx context.Context, tx *gorm.DB, repo Repository, request *models.ReturnRequest) (bool, ledger.Movement, error) {
	now := db.NowUTC()
	claimed, err := repo.MarkRefunded(ctx, request.ID, now)
	if err != nil {
		return false, ledger.Movement{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark return refunded")
	}
	if !claimed {
		return false, ledger.Movement{}, nil
	}
	request.RefundedAt = &now

	var credited ledger.Movement
	switch request.RefundMethod {
	case enums.RefundMethodStoreCredit:
		returnID := request.ID
		credited, err = s.ledger.Credit(ctx, tx, ledger.Entry{
			CustomerID:      request.CustomerID,
			AmountCents:     request.RefundAmountCents,
			ReturnRequestID: &returnID,
		})
		if err != nil {
			return false, ledger.Movement{}, err
		}
	case enums.RefundMethodOriginalPayment:
		if err := s.reverser.Reverse(ctx, *request); err != nil {
			return false, ledger.Movement{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse original payment")
		}
	}
	return true, credited, nil
}

func checkGate(request *models.ReturnRequest, gate Gate) error {
	if gate == GateSeller {
		if request.SellerApprovalStatus != enums.ApprovalPending {
			return alreadyDecided(gate).WithDetails(map[string]any{"sellerApprovalStatus": request.SellerApprovalStatus})
		}
		return nil
	}
	switch {
	case request.AdminApprovalStatus != enums.ApprovalPending:
		return alreadyDecided(gate).WithDetails(map[string]any{"adminApprovalStatus": request.AdminApprovalStatus})
	case request.SellerApprovalStatus == enums.ApprovalRejected:
		return pkgerrors.New(pkgerrors.CodeConflict, "return was rejected by the seller")
	case request.SellerApprovalStatus != enums.ApprovalApproved:
		return pkgerrors.New(pkgerrors.CodeInvalidState, "seller has not approved this return yet").
			WithDetails(map[string]any{"sellerApprovalStatus": request.SellerApprovalStatus})
	}
	return nil
}

func alreadyDecided(gate Gate) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "%s decision already recorded", gate)
}

func (s *service) notify(ctx context.Context, request models.ReturnRequest, status enums.ReturnStatus) {
	if s.notifier == nil || s.customers == nil {
		return
	}
	customer, err := s.customers.FindByID(ctx, request.CustomerID)
	if err != nil {
		s.logg.Warn(ctx, "return decision email skipped: customer lookup failed")
		return
	}
	if err := s.notifier.ReturnDecided(ctx, *customer, request, string(status)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "return decision email failed")
	}
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID, viewer orders.Viewer) (*ReturnDTO, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load return request")
	}
	switch viewer.Role {
	case enums.RoleAdmin:
	case enums.RoleCustomer:
		if request.CustomerID != viewer.ID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return request does not belong to customer")
		}
	case enums.RoleSeller:
		if request.SellerID != viewer.ID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return request does not belong to seller")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot read returns")
	}
	dto := NewReturnDTO(*request)
	return &dto, nil
}

func (s *service) ListPendingForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*pagination.Page[ReturnDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForSeller(ctx, sellerID, true, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller returns")
	}
	return buildPage(rows, params.Limit), nil
}

func (s *service) ListForAdmin(ctx context.Context, params pagination.Params) (*pagination.Page[ReturnDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListAwaitingAdmin(ctx, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list returns awaiting review")
	}
	return buildPage(rows, params.Limit), nil
}

func buildPage(rows []models.ReturnRequest, limit int) *pagination.Page[ReturnDTO] {
	dtos := make([]ReturnDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewReturnDTO(row))
	}
	page := pagination.Build(dtos, limit, returnCursor)
	return &page
}
