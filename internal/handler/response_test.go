package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blogsite/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "validation_error"},
		{"not found", apperror.NotFound("post", 1), http.StatusNotFound, "not_found"},
		{"protected", apperror.Protected("category", 1, "posts"), http.StatusConflict, "protected"},
		{"unauthenticated", apperror.Unauthenticated("log in"), http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "forbidden"},
		{"conflict", apperror.Conflict("post", 1), http.StatusConflict, "conflict"},
		{"wrapped", fmt.Errorf("service: %w", apperror.NotFound("user", 2)), http.StatusNotFound, "not_found"},
		{"unknown", errors.New("disk I/O error at /var/lib/blog.db"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantKind, body.Error)
			assert.NotContains(t, body.Message, "/var/lib")
		})
	}
}

func TestWriteError_CarriesField(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.ValidationFailed("email", "a user with this email already exists"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "email", body.Field)
}

func TestReadInput(t *testing.T) {
	t.Run("urlencoded form", func(t *testing.T) {
		form := url.Values{"title": {"Hello"}, "category": {""}}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		in, err := readInput(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, "Hello", in.get("title"))
		require.NotNil(t, in.opt("category"))
		assert.Equal(t, "", *in.opt("category"))
		assert.Nil(t, in.opt("content"))
	})

	t.Run("json object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Hello","content":null,"n":3}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		in, err := readInput(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, "Hello", in.get("title"))
		assert.Nil(t, in.opt("content"))
		assert.Equal(t, "3", in.get("n"))
	})

	t.Run("broken json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
		req.Header.Set("Content-Type", "application/json")

		_, err := readInput(httptest.NewRecorder(), req)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestIDParam(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.raw)
			req := httptest.NewRequest(http.MethodGet, "/post/"+tt.raw, nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			got, err := idParam(req, "post")
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
