package hires

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/api/middleware"
	internalhires "github.com/casamarket/casa-backend/internal/hires"
	internalorders "github.com/casamarket/casa-backend/internal/orders"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

type stubHires struct {
	lastRate   internalhires.RateInput
	lastDecide *bool
}

func (s *stubHires) Create(_ context.Context, customerID, designerID uuid.UUID, brief string) (*internalhires.HireDTO, error) {
	return &internalhires.HireDTO{ID: uuid.New(), CustomerID: customerID, DesignerID: designerID, Brief: brief, Status: enums.HireStatusPending}, nil
}

func (s *stubHires) Decide(_ context.Context, id, designerID uuid.UUID, accept bool) (*internalhires.HireDTO, error) {
	s.lastDecide = &accept
	return &internalhires.HireDTO{ID: id, DesignerID: designerID, Status: enums.HireStatusAccepted}, nil
}

func (s *stubHires) Complete(context.Context, uuid.UUID, uuid.UUID) (*internalhires.HireDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "invalid hire transition")
}

func (s *stubHires) Rate(_ context.Context, input internalhires.RateInput) (uuid.UUID, error) {
	s.lastRate = input
	return uuid.New(), nil
}

func (s *stubHires) List(_ context.Context, viewer internalorders.Viewer, _ pagination.Params) (*pagination.Page[internalhires.HireDTO], error) {
	if viewer.Role == enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a hire party")
	}
	return &pagination.Page[internalhires.HireDTO]{Items: []internalhires.HireDTO{}}, nil
}

func hireRequest(method, body string, role enums.ActorRole, hireID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
	}
	rctx := chi.NewRouteContext()
	if hireID != "" {
		rctx.URLParams.Add("hireId", hireID)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middleware.WithActor(ctx, uuid.New(), role))
}

func TestCreateHire(t *testing.T) {
	resp := httptest.NewRecorder()
	body := `{"designerId":"` + uuid.NewString() + `","brief":"redo my kitchen"}`
	Create(&stubHires{}, logger.Nop()).ServeHTTP(resp, hireRequest(http.MethodPost, body, enums.RoleCustomer, ""))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	Create(&stubHires{}, logger.Nop()).ServeHTTP(resp, hireRequest(http.MethodPost, `{"brief":"x"}`, enums.RoleCustomer, ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without designer got %d", resp.Code)
	}
}

func TestAcceptAndReject(t *testing.T) {
	svc := &stubHires{}
	id := uuid.NewString()

	Accept(svc, logger.Nop()).ServeHTTP(httptest.NewRecorder(), hireRequest(http.MethodPost, "", enums.RoleSeller, id))
	if svc.lastDecide == nil || !*svc.lastDecide {
		t.Fatal("expected accept decision")
	}
	Reject(svc, logger.Nop()).ServeHTTP(httptest.NewRecorder(), hireRequest(http.MethodPost, "", enums.RoleSeller, id))
	if *svc.lastDecide {
		t.Fatal("expected reject decision")
	}

	resp := httptest.NewRecorder()
	Complete(svc, logger.Nop()).ServeHTTP(resp, hireRequest(http.MethodPost, "", enums.RoleSeller, id))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestRateDirectionFollowsRole(t *testing.T) {
	svc := &stubHires{}
	id := uuid.NewString()

	resp := httptest.NewRecorder()
	Rate(svc, logger.Nop()).ServeHTTP(resp, hireRequest(http.MethodPost, `{"stars":5}`, enums.RoleCustomer, id))
	if resp.Code != http.StatusCreated || svc.lastRate.Direction != enums.HireRatingCustomerToDesigner {
		t.Fatalf("customer rating: code=%d direction=%s", resp.Code, svc.lastRate.Direction)
	}

	resp = httptest.NewRecorder()
	Rate(svc, logger.Nop()).ServeHTTP(resp, hireRequest(http.MethodPost, `{"stars":4}`, enums.RoleSeller, id))
	if resp.Code != http.StatusCreated || svc.lastRate.Direction != enums.HireRatingDesignerToCustomer {
		t.Fatalf("designer rating: code=%d direction=%s", resp.Code, svc.lastRate.Direction)
	}

	resp = httptest.NewRecorder()
	Rate(svc, logger.Nop()).ServeHTTP(resp, hireRequest(http.MethodPost, `{"stars":4}`, enums.RoleAdmin, id))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("admin rating: expected 403 got %d", resp.Code)
	}
}

func TestListForbiddenForAdmin(t *testing.T) {
	resp := httptest.NewRecorder()
	List(&stubHires{}, logger.Nop()).ServeHTTP(resp, hireRequest(http.MethodGet, "", enums.RoleAdmin, ""))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
