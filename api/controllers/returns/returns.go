package returns

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/api/middleware"
	"github.com/casamarket/casa-backend/api/responses"
	"github.com/casamarket/casa-backend/api/validators"
	internalorders "github.com/casamarket/casa-backend/internal/orders"
	internalreturns "github.com/casamarket/casa-backend/internal/returns"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
)

const (
	evidenceField = "file"
	sniffLen      = 512
)

type requestReturnRequest struct {
	Reason            string   `json:"reason" validate:"required,notblank,max=2000"`
	EvidenceURLs      []string `json:"evidenceUrls" validate:"max=10,dive,url"`
	RefundMethod      string   `json:"refundMethod"`
	RefundAmountCents *int64   `json:"refundAmountCents" validate:"omitempty,gt=0"`
}

type decisionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type evidenceResponse struct {
	URL string `json:"url"`
}

// Request opens a return for a fulfilled item owned by the customer.
func Request(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.URLParamUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req requestReturnRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParseRefundMethod(req.RefundMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid refund method").
				WithDetails(map[string]any{"field": "refundMethod"}))
			return
		}

		dto, err := svc.RequestReturn(r.Context(), internalreturns.RequestReturnInput{
			OrderItemID:       itemID,
			CustomerID:        customerID,
			Reason:            req.Reason,
			EvidenceURLs:      req.EvidenceURLs,
			RefundMethod:      method,
			RefundAmountCents: req.RefundAmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// UploadEvidence stores one multipart file and returns its public URL.
func UploadEvidence(svc internalreturns.Service, maxUploadMB int, logg *logger.Logger) http.HandlerFunc {
	maxBytes := int64(maxUploadMB) << 20
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}

		file, header, err := r.FormFile(evidenceField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "file exceeds %d MB", maxUploadMB))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart field \"file\" is required"))
			return
		}
		defer file.Close()

		body, contentType, err := detectContentType(file, header.Header.Get("Content-Type"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload"))
			return
		}

		url, err := svc.UploadEvidence(r.Context(), customerID, header.Filename, contentType, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, evidenceResponse{URL: url})
	}
}

// detectContentType trusts the part header unless it is missing or generic.
func detectContentType(file io.Reader, declared string) (io.Reader, string, error) {
	declared = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	if declared != "" && declared != "application/octet-stream" {
		return file, declared, nil
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]
	sniffed := strings.SplitN(http.DetectContentType(head), ";", 2)[0]
	return io.MultiReader(bytes.NewReader(head), file), sniffed, nil
}

// Detail shows a return to its customer, its seller, or an admin.
func Detail(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, role, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		returnID, err := validators.URLParamUUID(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), returnID, internalorders.Viewer{ID: actorID, Role: role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// SellerList returns returns still waiting on the seller.
func SellerList(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, _, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPendingForSeller(r.Context(), sellerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func SellerApprove(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(logg, func(r *http.Request, id, actor uuid.UUID, _ string) (*internalreturns.ReturnDTO, error) {
		return svc.ApproveBySeller(r.Context(), id, actor)
	})
}

func SellerReject(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(logg, func(r *http.Request, id, actor uuid.UUID, note string) (*internalreturns.ReturnDTO, error) {
		return svc.RejectBySeller(r.Context(), id, actor, note)
	})
}

// AdminList returns requests the seller approved that still need an admin.
func AdminList(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListForAdmin(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminApprove(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(logg, func(r *http.Request, id, actor uuid.UUID, note string) (*internalreturns.ReturnDTO, error) {
		return svc.ApproveByAdmin(r.Context(), id, actor, note)
	})
}

func AdminReject(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(logg, func(r *http.Request, id, actor uuid.UUID, note string) (*internalreturns.ReturnDTO, error) {
		return svc.RejectByAdmin(r.Context(), id, actor, note)
	})
}

type decideFunc func(r *http.Request, returnID, actorID uuid.UUID, note string) (*internalreturns.ReturnDTO, error)

// decide reads {returnId} and an optional {"note"} body, then runs fn.
func decide(logg *logger.Logger, fn decideFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		returnID, err := validators.URLParamUUID(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req decisionRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		dto, err := fn(r, returnID, actorID, req.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
