package hires

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/api/middleware"
	"github.com/casamarket/casa-backend/api/responses"
	"github.com/casamarket/casa-backend/api/validators"
	internalhires "github.com/casamarket/casa-backend/internal/hires"
	internalorders "github.com/casamarket/casa-backend/internal/orders"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
)

type createRequest struct {
	DesignerID uuid.UUID `json:"designerId" validate:"required"`
	Brief      string    `json:"brief" validate:"required,notblank,max=4000"`
}

type rateRequest struct {
	Stars   int     `json:"stars" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

type ratingResponse struct {
	ID uuid.UUID `json:"id"`
}

// Create opens a hire request from the customer to a designer.
func Create(svc internalhires.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Create(r.Context(), customerID, req.DesignerID, req.Brief)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// List shows the hires the actor is party to.
func List(svc internalhires.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), internalorders.Viewer{ID: actorID, Role: role}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Accept(svc internalhires.Service, logg *logger.Logger) http.HandlerFunc {
	return designerAction(logg, func(r *http.Request, id, designerID uuid.UUID) (*internalhires.HireDTO, error) {
		return svc.Decide(r.Context(), id, designerID, true)
	})
}

func Reject(svc internalhires.Service, logg *logger.Logger) http.HandlerFunc {
	return designerAction(logg, func(r *http.Request, id, designerID uuid.UUID) (*internalhires.HireDTO, error) {
		return svc.Decide(r.Context(), id, designerID, false)
	})
}

func Complete(svc internalhires.Service, logg *logger.Logger) http.HandlerFunc {
	return designerAction(logg, func(r *http.Request, id, designerID uuid.UUID) (*internalhires.HireDTO, error) {
		return svc.Complete(r.Context(), id, designerID)
	})
}

func designerAction(logg *logger.Logger, fn func(r *http.Request, id, designerID uuid.UUID) (*internalhires.HireDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		designerID, _, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hireID, err := validators.URLParamUUID(r, "hireId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := fn(r, hireID, designerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// Rate records one side's rating of a completed hire. The direction follows
// the caller's role.
func Rate(svc internalhires.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var direction enums.HireRatingDirection
		switch role {
		case enums.RoleCustomer:
			direction = enums.HireRatingCustomerToDesigner
		case enums.RoleSeller:
			direction = enums.HireRatingDesignerToCustomer
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only hire parties can rate"))
			return
		}
		hireID, err := validators.URLParamUUID(r, "hireId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req rateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := svc.Rate(r.Context(), internalhires.RateInput{
			HireRequestID: hireID,
			ActorID:       actorID,
			Direction:     direction,
			Stars:         req.Stars,
			Comment:       req.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ratingResponse{ID: id})
	}
}
