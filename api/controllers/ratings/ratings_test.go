package ratings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/api/middleware"
	internalratings "github.com/casamarket/casa-backend/internal/ratings"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
)

type stubRatings struct {
	submitted map[uuid.UUID]bool
}

func (s *stubRatings) SubmitRating(_ context.Context, input internalratings.SubmitInput) (*internalratings.RatingDTO, error) {
	if s.submitted[input.OrderItemID] {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "item already rated")
	}
	s.submitted[input.OrderItemID] = true
	return &internalratings.RatingDTO{ID: uuid.New(), OrderItemID: input.OrderItemID, Stars: input.Stars}, nil
}

func (s *stubRatings) ProductSummary(context.Context, uuid.UUID) (internalratings.Summary, error) {
	return internalratings.Summary{Count: 3, Average: 4.33}, nil
}

func (s *stubRatings) SellerSummary(context.Context, uuid.UUID) (internalratings.Summary, error) {
	return internalratings.Summary{}, nil
}

func submitRequestFor(itemID uuid.UUID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("itemId", itemID.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middleware.WithActor(ctx, uuid.New(), enums.RoleCustomer))
}

func TestSubmitOncePerItem(t *testing.T) {
	svc := &stubRatings{submitted: map[uuid.UUID]bool{}}
	itemID := uuid.New()

	resp := httptest.NewRecorder()
	Submit(svc, logger.Nop()).ServeHTTP(resp, submitRequestFor(itemID, `{"stars":5,"comment":"great"}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	Submit(svc, logger.Nop()).ServeHTTP(resp, submitRequestFor(itemID, `{"stars":4}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestSubmitValidatesStars(t *testing.T) {
	svc := &stubRatings{submitted: map[uuid.UUID]bool{}}
	for _, body := range []string{`{"stars":0}`, `{"stars":6}`, `{}`} {
		resp := httptest.NewRecorder()
		Submit(svc, logger.Nop()).ServeHTTP(resp, submitRequestFor(uuid.New(), body))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", body, resp.Code)
		}
	}
}

func TestProductSummary(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", uuid.NewString())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	ProductSummary(&stubRatings{}, logger.Nop()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"average":4.33`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}
