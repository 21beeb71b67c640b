package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/pkg/auth"
	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type stubRevocations struct {
	revoked bool
	err     error
}

func (s stubRevocations) IsRevoked(context.Context, string) (bool, error) {
	return s.revoked, s.err
}

func tokenAt(t *testing.T, issued time.Time, actorID uuid.UUID, role enums.ActorRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, issued, auth.AccessTokenPayload{ActorID: actorID, Role: role})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return token
}

func serveAuth(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestAuthRejections(t *testing.T) {
	fresh := tokenAt(t, time.Now(), uuid.New(), enums.RoleCustomer)
	stale := tokenAt(t, time.Now().Add(-3*time.Hour), uuid.New(), enums.RoleCustomer)

	cases := []struct {
		name   string
		header string
		store  stubRevocations
		want   int
	}{
		{"no header", "", stubRevocations{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic " + fresh, stubRevocations{}, http.StatusUnauthorized},
		{"garbage", "Bearer invalid", stubRevocations{}, http.StatusUnauthorized},
		{"expired", "Bearer " + stale, stubRevocations{}, http.StatusUnauthorized},
		{"revoked", "Bearer " + fresh, stubRevocations{revoked: true}, http.StatusUnauthorized},
		{"store down", "Bearer " + fresh, stubRevocations{err: errors.New("redis down")}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := serveAuth(Auth(testJWT, tc.store, nil)(okHandler()), tc.header)
			if resp.Code != tc.want {
				t.Fatalf("status = %d, want %d", resp.Code, tc.want)
			}
		})
	}
}

func TestAuthPopulatesContext(t *testing.T) {
	actorID := uuid.New()
	token := tokenAt(t, time.Now(), actorID, enums.RoleSeller)

	var (
		gotID   uuid.UUID
		gotRole enums.ActorRole
		gotJTI  string
		gotExp  time.Time
	)
	h := Auth(testJWT, stubRevocations{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = ActorIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotJTI, gotExp = TokenFromContext(r.Context())
	}))

	if resp := serveAuth(h, "bearer "+token); resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if gotID != actorID || gotRole != enums.RoleSeller {
		t.Fatalf("actor = %s/%s", gotID, gotRole)
	}
	if gotJTI == "" || !gotExp.After(time.Now()) {
		t.Fatalf("token id %q expiry %s", gotJTI, gotExp)
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(nil, enums.RoleSeller, enums.RoleAdmin)(okHandler())

	for role, want := range map[enums.ActorRole]int{
		enums.RoleSeller:   http.StatusOK,
		enums.RoleAdmin:    http.StatusOK,
		enums.RoleCustomer: http.StatusForbidden,
		"":                 http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithActor(req.Context(), uuid.New(), role))
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("role %q: status = %d, want %d", role, resp.Code, want)
		}
	}
}
