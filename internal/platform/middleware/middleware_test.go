// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/comicverse/internal/platform/ctxutil"
	"github.com/taibuivan/comicverse/internal/platform/middleware"
	"github.com/taibuivan/comicverse/internal/platform/sec"
)

type stubVerifier struct {
	claims *sec.AuthClaims
	err    error
}

func (verifier stubVerifier) VerifyToken(string) (*sec.AuthClaims, error) {
	return verifier.claims, verifier.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	claims := &sec.AuthClaims{UserID: "u1", Roles: []string{"uploader"}}

	tests := []struct {
		name       string
		header     string
		verifier   stubVerifier
		wantStatus int
		wantUser   bool
	}{
		{"anonymous", "", stubVerifier{}, http.StatusOK, false},
		{"bad_scheme", "Basic abc", stubVerifier{}, http.StatusUnauthorized, false},
		{"invalid_token", "Bearer abc", stubVerifier{err: errors.New("expired")}, http.StatusUnauthorized, false},
		{"valid_token", "Bearer abc", stubVerifier{claims: claims}, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sawUser bool
			next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				sawUser = ctxutil.GetAuthUser(request.Context()) != nil
				writer.WriteHeader(http.StatusOK)
			})

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()

			middleware.Authenticate(tt.verifier)(next).ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantUser, sawUser)
		})
	}
}

func TestRequireAnyRole(t *testing.T) {
	guard := middleware.RequireAnyRole(sec.RoleUploader, sec.RoleAdmin)(okHandler())

	tests := []struct {
		name       string
		claims     *sec.AuthClaims
		wantStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"reader", &sec.AuthClaims{UserID: "u1", Roles: []string{"user"}}, http.StatusForbidden},
		{"uploader", &sec.AuthClaims{UserID: "u2", Roles: []string{"uploader"}}, http.StatusOK},
		{"admin", &sec.AuthClaims{UserID: "u3", Roles: []string{"admin", "user"}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.claims != nil {
				request = request.WithContext(ctxutil.WithAuthUser(request.Context(), tt.claims))
			}
			recorder := httptest.NewRecorder()

			guard.ServeHTTP(recorder, request)
			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := middleware.NewRateLimiter(ctx, 1, 2)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestRequestID_EchoesClientValue(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "req-42")
	recorder := httptest.NewRecorder()

	var seen string
	next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	})

	middleware.RequestID()(next).ServeHTTP(recorder, request)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", recorder.Header().Get("X-Request-ID"))
}

func TestRealIP(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", middleware.RealIP(request))

	request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", middleware.RealIP(request))
}
