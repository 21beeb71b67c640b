package returns

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
)

const (
	maxReasonLength   = 2000
	maxNoteLength     = 1000
	maxEvidenceURLs   = 10
	maxFilenameLength = 200
)

var evidenceContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"application/pdf": ".pdf",
}

// RequestReturnInput opens a return for one fulfilled order item. A nil
// RefundAmountCents refunds the full item total.
type RequestReturnInput struct {
	OrderItemID       uuid.UUID
	CustomerID        uuid.UUID
	Reason            string
	EvidenceURLs      []string
	RefundMethod      enums.RefundMethod
	RefundAmountCents *int64
}

func (in *RequestReturnInput) normalize() error {
	if in.OrderItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order item id required")
	}
	if in.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	if utf8.RuneCountInString(in.Reason) > maxReasonLength {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "reason must be at most %d characters", maxReasonLength)
	}
	if in.RefundMethod == "" {
		in.RefundMethod = enums.RefundMethodStoreCredit
	}
	if !in.RefundMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown refund method").
			WithDetails(map[string]any{"refundMethod": in.RefundMethod})
	}
	if len(in.EvidenceURLs) > maxEvidenceURLs {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d evidence files are allowed", maxEvidenceURLs)
	}
	cleaned := make([]string, 0, len(in.EvidenceURLs))
	for i, raw := range in.EvidenceURLs {
		raw = strings.TrimSpace(raw)
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "evidence url must be an absolute http(s) url").
				WithDetails(map[string]any{"index": i})
		}
		cleaned = append(cleaned, raw)
	}
	in.EvidenceURLs = cleaned
	return nil
}

// decisionNote trims a reviewer note. Rejections must carry one.
func decisionNote(note string, required bool) (*string, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		if required {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a note is required to reject a return")
		}
		return nil, nil
	}
	if utf8.RuneCountInString(note) > maxNoteLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "note must be at most %d characters", maxNoteLength)
	}
	return &note, nil
}

// evidenceObjectName builds customer-scoped object names so uploads never
// overwrite each other.
func evidenceObjectName(customerID uuid.UUID, filename, contentType string) (string, error) {
	ext, ok := evidenceContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported evidence file type").
			WithDetails(map[string]any{"contentType": contentType})
	}
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(filename, "\\", "/")), path.Ext(filename))
	base = sanitizeFilename(base)
	if base == "" {
		base = "evidence"
	}
	return path.Join(customerID.String(), uuid.NewString()+"-"+base+ext), nil
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
		if b.Len() >= maxFilenameLength {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
