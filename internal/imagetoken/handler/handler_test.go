package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealproof/internal/imagetoken"
	"sealproof/internal/platform/middleware"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
)

type stubService struct {
	minted     *imagetoken.Minted
	mintErr    error
	grant      *imagetoken.Grant
	consumeErr error

	lastToken string
}

func (s *stubService) Mint(_ context.Context, _ domain.CheckItemID, _ imagetoken.Side, _ domain.UserID, _ domain.TenantID) (*imagetoken.Minted, error) {
	return s.minted, s.mintErr
}

func (s *stubService) Consume(_ context.Context, token string) (*imagetoken.Grant, error) {
	s.lastToken = token
	return s.grant, s.consumeErr
}

func newRouter(svc Service) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func TestHandleMint(t *testing.T) {
	svc := &stubService{minted: &imagetoken.Minted{
		Token:     "tok_abc",
		ExpiresAt: time.Date(2026, 3, 14, 9, 31, 30, 0, time.UTC),
	}}
	router := newRouter(svc)

	body := []byte(`{"check_item_id":"3f1d2c4b-0000-4000-8000-00000000000a","side":"front"}`)
	req := httptest.NewRequest(http.MethodPost, "/images/tokens", bytes.NewReader(body))
	req.Header.Set(middleware.HeaderUserID, "c7f9b1e2-0000-4000-8000-000000000001")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp imagetoken.Minted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tok_abc", resp.Token)
}

func TestHandleMintRequiresIdentity(t *testing.T) {
	router := newRouter(&stubService{})

	body := []byte(`{"check_item_id":"3f1d2c4b-0000-4000-8000-00000000000a","side":"front"}`)
	req := httptest.NewRequest(http.MethodPost, "/images/tokens", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleMintRejectsUnknownSide(t *testing.T) {
	router := newRouter(&stubService{})

	body := []byte(`{"check_item_id":"3f1d2c4b-0000-4000-8000-00000000000a","side":"sideways"}`)
	req := httptest.NewRequest(http.MethodPost, "/images/tokens", bytes.NewReader(body))
	req.Header.Set(middleware.HeaderUserID, "c7f9b1e2-0000-4000-8000-000000000001")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleConsume(t *testing.T) {
	svc := &stubService{grant: &imagetoken.Grant{Side: imagetoken.SideFront}}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/images/tokens/consume", bytes.NewReader([]byte(`{"token":"tok_abc"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok_abc", svc.lastToken)
}

func TestHandleConsumeSpentToken(t *testing.T) {
	svc := &stubService{consumeErr: dErrors.New(dErrors.CodeExpiredOrConsumed, "token is expired or was already used")}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/images/tokens/consume", bytes.NewReader([]byte(`{"token":"tok_spent"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusGone, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "expired_or_consumed", resp["error"])
}
