package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signed(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthenticate(t *testing.T) {
	auth := NewAuthenticator(testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
	player := uuid.New()

	var seen uuid.UUID
	handler := auth.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetPlayerIDFromContext(r.Context())
		if err != nil {
			t.Errorf("GetPlayerIDFromContext: %v", err)
		}
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}))

	valid := jwt.MapClaims{"sub": player.String(), "exp": time.Now().Add(time.Hour).Unix()}
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), valid), http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("other"), valid), http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret),
			jwt.MapClaims{"sub": player.String(), "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized},
		{"non-uuid subject", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "42"}), http.StatusUnauthorized},
		{"none algorithm", "Bearer " + signed(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/teams/mine", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && seen != player {
				t.Fatalf("player = %s, want %s", seen, player)
			}
		})
	}
}

func TestRequireModerator(t *testing.T) {
	handler := RequireModerator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   int
	}{
		{"moderator", jwt.MapClaims{"sub": uuid.NewString(), "app_role": "moderator"}, http.StatusOK},
		{"admin", jwt.MapClaims{"sub": uuid.NewString(), "app_role": "admin"}, http.StatusOK},
		{"player", jwt.MapClaims{"sub": uuid.NewString(), "app_role": "player"}, http.StatusForbidden},
		{"no role", jwt.MapClaims{"sub": uuid.NewString()}, http.StatusForbidden},
		{"unknown role", jwt.MapClaims{"sub": uuid.NewString(), "app_role": "root"}, http.StatusForbidden},
		{"no claims", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/submissions/x/approve", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(context.Background(), tt.claims))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
