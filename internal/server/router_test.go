package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/readx/internal/auth"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

type pingHandler struct{}

func (pingHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) }
func (pingHandler) Routes() []string                                 { return []string{"GET /ping", "GET /healthz"} }

func TestBasicRouter(t *testing.T) {
	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle("get", "/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			order = append(order, "handler")
		}))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("order = %s", got)
		}
	})

	t.Run("path values", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/books/{id}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(req.PathValue("id")))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/abc123", nil))
		if rec.Body.String() != "abc123" {
			t.Errorf("body = %q, want abc123", rec.Body.String())
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/only-get", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/only-get", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("handler routes", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(pingHandler{})

		for _, path := range []string{"/ping", "/healthz"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Body.String() != "pong" {
				t.Errorf("%s body = %q", path, rec.Body.String())
			}
		}
	})
}

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*models.Session, error) {
	if token != "good" {
		return nil, &auth.Error{Code: auth.CodeInvalidToken, Message: "bad token"}
	}
	return &models.Session{UID: "u1"}, nil
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(stubVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SessionFrom(r.Context()).UID))
	}))

	tests := []struct {
		name   string
		url    string
		header string
		status int
	}{
		{"missing", "/", "", http.StatusUnauthorized},
		{"wrong scheme", "/", "Basic good", http.StatusUnauthorized},
		{"bad token", "/", "Bearer nope", http.StatusUnauthorized},
		{"header", "/", "Bearer good", http.StatusOK},
		{"query", "/?token=good", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && rec.Body.String() != "u1" {
				t.Errorf("body = %q, want u1", rec.Body.String())
			}
		})
	}
}

func TestRecover(t *testing.T) {
	h := Recover(shared.DiscardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", shared.ErrDuplicateEntry), http.StatusConflict},
		{&auth.Error{Code: auth.CodeEmailInUse}, http.StatusConflict},
		{&auth.Error{Code: auth.CodeTooManyRequests}, http.StatusTooManyRequests},
		{&auth.Error{Code: auth.CodeInvalidCredential}, http.StatusUnauthorized},
		{fmt.Errorf("%w: x", shared.ErrNotAuthorized), http.StatusForbidden},
		{shared.ErrEntryNotFound, http.StatusNotFound},
		{shared.ErrBookNotFound, http.StatusNotFound},
		{shared.ErrInvalidArgument, http.StatusBadRequest},
		{shared.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{shared.ErrAPIRequest, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorHidesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, shared.DiscardLogger(), errors.New("dsn=secret"))

	if strings.Contains(rec.Body.String(), "secret") {
		t.Errorf("body leaked internal error: %s", rec.Body.String())
	}
}
