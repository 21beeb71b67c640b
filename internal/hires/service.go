package hires

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/internal/orders"
	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/outbox"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

const (
	uniqueRatingPerDirection = "ux_hire_ratings_direction"
	maxBriefLength           = 4000
	maxCommentLength         = 1000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type designerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
}

type HireDTO struct {
	ID         uuid.UUID        `json:"id"`
	CustomerID uuid.UUID        `json:"customerId"`
	DesignerID uuid.UUID        `json:"designerId"`
	Brief      string           `json:"brief"`
	Status     enums.HireStatus `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func newHireDTO(h models.HireRequest) HireDTO {
	return HireDTO{
		ID:         h.ID,
		CustomerID: h.CustomerID,
		DesignerID: h.DesignerID,
		Brief:      h.Brief,
		Status:     h.Status,
		CreatedAt:  h.CreatedAt,
		UpdatedAt:  h.UpdatedAt,
	}
}

type RateInput struct {
	HireRequestID uuid.UUID
	ActorID       uuid.UUID
	Direction     enums.HireRatingDirection
	Stars         int
	Comment       *string
}

// Service drives designer hire requests: pending -> accepted|rejected,
// accepted -> completed, then one rating per direction.
type Service interface {
	Create(ctx context.Context, customerID, designerID uuid.UUID, brief string) (*HireDTO, error)
	Decide(ctx context.Context, id, designerID uuid.UUID, accept bool) (*HireDTO, error)
	Complete(ctx context.Context, id, designerID uuid.UUID) (*HireDTO, error)
	Rate(ctx context.Context, input RateInput) (uuid.UUID, error)
	List(ctx context.Context, viewer orders.Viewer, params pagination.Params) (*pagination.Page[HireDTO], error)
}

type service struct {
	repo      Repository
	tx        txRunner
	designers designerLoader
	outbox    outbox.Emitter
	logg      *logger.Logger
}

func NewService(repo Repository, tx txRunner, designers designerLoader, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("hires repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if designers == nil {
		return nil, fmt.Errorf("designer loader required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, designers: designers, outbox: emitter, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, customerID, designerID uuid.UUID, brief string) (*HireDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brief is required")
	}
	if utf8.RuneCountInString(brief) > maxBriefLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "brief must be at most %d characters", maxBriefLength)
	}

	designer, err := s.designers.FindByID(ctx, designerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "designer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load designer")
	}
	if !designer.OffersDesignServices {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller does not offer design services")
	}

	hire := models.HireRequest{
		CustomerID: customerID,
		DesignerID: designer.ID,
		Brief:      brief,
		Status:     enums.HireStatusPending,
	}
	actor := &outbox.ActorRef{ID: customerID, Role: string(enums.RoleCustomer)}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &hire); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create hire request")
		}
		return s.emit(ctx, tx, hire, actor)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "hire_request_id", hire.ID.String()), "hire request created")
	dto := newHireDTO(hire)
	return &dto, nil
}

func (s *service) Decide(ctx context.Context, id, designerID uuid.UUID, accept bool) (*HireDTO, error) {
	to := enums.HireStatusRejected
	if accept {
		to = enums.HireStatusAccepted
	}
	return s.transition(ctx, id, designerID, enums.HireStatusPending, to)
}

func (s *service) Complete(ctx context.Context, id, designerID uuid.UUID) (*HireDTO, error) {
	return s.transition(ctx, id, designerID, enums.HireStatusAccepted, enums.HireStatusCompleted)
}

func (s *service) transition(ctx context.Context, id, designerID uuid.UUID, from, to enums.HireStatus) (*HireDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hire request id required")
	}
	if designerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "designer identity missing")
	}

	var hire *models.HireRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		hire, err = s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if hire.DesignerID != designerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "hire request is addressed to another designer")
		}
		if hire.Status != from {
			return invalidHireTransition(hire.Status, to)
		}
		ok, err := repo.CompareAndSetStatus(ctx, hire.ID, from, to)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update hire request status")
		}
		if !ok {
			return invalidHireTransition(from, to)
		}
		hire.Status = to
		return s.emit(ctx, tx, *hire, &outbox.ActorRef{ID: designerID, Role: string(enums.RoleSeller)})
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"hire_request_id": id.String(), "from": from, "to": to})
	s.logg.Info(logCtx, "hire request status changed")
	dto := newHireDTO(*hire)
	return &dto, nil
}

func (s *service) Rate(ctx context.Context, input RateInput) (uuid.UUID, error) {
	if input.HireRequestID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "hire request id required")
	}
	if input.ActorID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if _, err := enums.ParseHireRatingDirection(string(input.Direction)); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rating direction")
	}
	if input.Stars < 1 || input.Stars > 5 {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "stars must be between 1 and 5").
			WithDetails(map[string]any{"stars": input.Stars})
	}
	var comment *string
	if input.Comment != nil {
		trimmed := strings.TrimSpace(*input.Comment)
		if utf8.RuneCountInString(trimmed) > maxCommentLength {
			return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "comment must be at most %d characters", maxCommentLength)
		}
		if trimmed != "" {
			comment = &trimmed
		}
	}

	rating := models.HireRating{
		HireRequestID: input.HireRequestID,
		Direction:     input.Direction,
		RaterID:       input.ActorID,
		Stars:         input.Stars,
		Comment:       comment,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		hire, err := s.load(ctx, repo, input.HireRequestID)
		if err != nil {
			return err
		}
		rater := hire.CustomerID
		if input.Direction == enums.HireRatingDesignerToCustomer {
			rater = hire.DesignerID
		}
		if rater != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the matching party may leave this rating")
		}
		if hire.Status != enums.HireStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "only completed hires can be rated").
				WithDetails(map[string]any{"status": hire.Status})
		}
		if err := repo.CreateRating(ctx, &rating); err != nil {
			if db.IsUniqueViolation(err, uniqueRatingPerDirection) {
				return pkgerrors.New(pkgerrors.CodeConflict, "hire already rated in this direction")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create hire rating")
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return rating.ID, nil
}

func (s *service) List(ctx context.Context, viewer orders.Viewer, params pagination.Params) (*pagination.Page[HireDTO], error) {
	var party Party
	switch viewer.Role {
	case enums.RoleCustomer:
		party = PartyCustomer
	case enums.RoleSeller:
		party = PartyDesigner
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list hire requests")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForParty(ctx, party, viewer.ID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list hire requests")
	}
	dtos := make([]HireDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, newHireDTO(row))
	}
	page := pagination.Build(dtos, params.Limit, func(h HireDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: h.CreatedAt, ID: h.ID}
	})
	return &page, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.HireRequest, error) {
	hire, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hire request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load hire request")
	}
	return hire, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, hire models.HireRequest, actor *outbox.ActorRef) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventHireStatusChanged,
		AggregateType: enums.AggregateHireRequest,
		AggregateID:   hire.ID,
		Actor:         actor,
		Data: outbox.HireStatusChangedEvent{
			HireRequestID: hire.ID,
			CustomerID:    hire.CustomerID,
			DesignerID:    hire.DesignerID,
			Status:        string(hire.Status),
		},
	})
}

func invalidHireTransition(from, to enums.HireStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeInvalidState, "cannot move hire request from %s to %s", from, to).
		WithDetails(map[string]any{"from": from, "to": to})
}
