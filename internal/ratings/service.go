package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/metrics"
	"github.com/casamarket/casa-backend/pkg/outbox"
)

const (
	uniqueRatingPerItem = "ux_ratings_order_item"
	maxCommentLength    = 1000
	minStars            = 1
	maxStars            = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type SubmitInput struct {
	OrderItemID uuid.UUID
	CustomerID  uuid.UUID
	Stars       int
	Comment     *string
}

type RatingDTO struct {
	ID          uuid.UUID `json:"id"`
	OrderItemID uuid.UUID `json:"orderItemId"`
	ProductID   uuid.UUID `json:"productId"`
	SellerID    uuid.UUID `json:"sellerId"`
	Stars       int       `json:"stars"`
	Comment     *string   `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Summary is recomputed from stored ratings on every read.
type Summary struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

type Service interface {
	SubmitRating(ctx context.Context, input SubmitInput) (*RatingDTO, error)
	ProductSummary(ctx context.Context, productID uuid.UUID) (Summary, error)
	SellerSummary(ctx context.Context, sellerID uuid.UUID) (Summary, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outbox.Emitter
	logg    *logger.Logger
	metrics *metrics.Domain
}

func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, logg *logger.Logger, m *metrics.Domain) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ratings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, outbox: emitter, logg: logg, metrics: m}, nil
}

func (s *service) SubmitRating(ctx context.Context, input SubmitInput) (*RatingDTO, error) {
	if input.OrderItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order item id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.Stars < minStars || input.Stars > maxStars {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "stars must be between %d and %d", minStars, maxStars).
			WithDetails(map[string]any{"stars": input.Stars})
	}
	comment, err := normalizeComment(input.Comment)
	if err != nil {
		return nil, err
	}

	var rating models.Rating
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
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
			return pkgerrors.New(pkgerrors.CodeInvalidState, "only fulfilled items can be rated").
				WithDetails(map[string]any{"status": item.Status})
		}

		rating = models.Rating{
			OrderItemID: item.ID,
			CustomerID:  input.CustomerID,
			ProductID:   item.ProductID,
			SellerID:    item.SellerID,
			Stars:       input.Stars,
			Comment:     comment,
		}
		if err := repo.Create(ctx, &rating); err != nil {
			if db.IsUniqueViolation(err, uniqueRatingPerItem) {
				return pkgerrors.New(pkgerrors.CodeConflict, "order item already rated")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create rating")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRatingSubmitted,
			AggregateType: enums.AggregateRating,
			AggregateID:   rating.ID,
			Actor:         &outbox.ActorRef{ID: input.CustomerID, Role: string(enums.RoleCustomer)},
			Data: outbox.RatingSubmittedEvent{
				RatingID:    rating.ID,
				OrderItemID: rating.OrderItemID,
				ProductID:   rating.ProductID,
				SellerID:    rating.SellerID,
				Stars:       rating.Stars,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RatingSubmitted()
	s.logg.Info(s.logg.WithField(ctx, "order_item_id", rating.OrderItemID.String()), "rating submitted")
	return &RatingDTO{
		ID:          rating.ID,
		OrderItemID: rating.OrderItemID,
		ProductID:   rating.ProductID,
		SellerID:    rating.SellerID,
		Stars:       rating.Stars,
		Comment:     rating.Comment,
		CreatedAt:   rating.CreatedAt,
	}, nil
}

func (s *service) ProductSummary(ctx context.Context, productID uuid.UUID) (Summary, error) {
	return s.summary(ctx, SubjectProduct, productID)
}

func (s *service) SellerSummary(ctx context.Context, sellerID uuid.UUID) (Summary, error) {
	return s.summary(ctx, SubjectSeller, sellerID)
}

func (s *service) summary(ctx context.Context, subject Subject, id uuid.UUID) (Summary, error) {
	if id == uuid.Nil {
		return Summary{}, pkgerrors.New(pkgerrors.CodeValidation, "id required")
	}
	agg, err := s.repo.Aggregate(ctx, subject, id)
	if err != nil {
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate ratings")
	}
	return summarize(agg), nil
}

// summarize rounds the average half-up to two places.
func summarize(agg Aggregate) Summary {
	if agg.Count == 0 {
		return Summary{}
	}
	avg := decimal.NewFromInt(agg.Sum).Div(decimal.NewFromInt(agg.Count)).Round(2)
	return Summary{Count: agg.Count, Average: avg.InexactFloat64()}
}

func normalizeComment(comment *string) (*string, error) {
	if comment == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxCommentLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "comment must be at most %d characters", maxCommentLength)
	}
	return &trimmed, nil
}
