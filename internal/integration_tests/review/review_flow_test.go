package review_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealproof/internal/audit"
	"sealproof/internal/checkitem"
	"sealproof/internal/evidence"
	"sealproof/internal/imagetoken"
	imagetokenhandler "sealproof/internal/imagetoken/handler"
	"sealproof/internal/platform/metrics"
	"sealproof/internal/policy"
	"sealproof/internal/review"
	reviewhandler "sealproof/internal/review/handler"
	httptransport "sealproof/internal/transport/http"
	"sealproof/pkg/domain"
	"sealproof/pkg/testutil"
)

// testStack wires the review and image token services through the real
// router with in-memory stores, the same shape cmd/server assembles.
type testStack struct {
	router http.Handler
	items  *checkitem.InMemoryStore
}

// Prometheus-backed metrics register on the default registry, so they are
// created once for the whole package rather than per stack.
var (
	routerMetrics   = metrics.New()
	evidenceMetrics = evidence.NewPromMetrics()
)

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	threshold, err := domain.ParseAmount("10000.00")
	require.NoError(t, err)

	items := checkitem.NewInMemoryStore()
	reviewStore := review.NewInMemoryStore()
	txRunner := review.NewInMemoryTxRunner(reviewStore)
	auditWorker := audit.NewWorker(audit.NewInMemoryStore(), 64, log)

	engine := policy.NewEngine(items, threshold)
	capturer := evidence.NewCapturer(engine, items, evidenceMetrics, log)
	reviewMetrics := noopReviewMetrics{}
	svc := review.NewService(
		review.Config{DualControlThreshold: threshold},
		items, capturer, txRunner, reviewStore, reviewMetrics, auditWorker, log,
	)
	verifier := review.NewVerifier(reviewStore, reviewMetrics, auditWorker)

	tokenService := imagetoken.NewService(
		imagetoken.NewInMemoryStore(),
		imagetoken.NewInMemoryRateLimiter(30, time.Minute),
		90*time.Second,
		noopTokenMetrics{}, auditWorker, log,
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:  log,
		Metrics: routerMetrics,
		Handlers: []httptransport.Registrar{
			reviewhandler.New(svc, verifier, log),
			imagetokenhandler.New(tokenService, log),
		},
	})

	return &testStack{router: router, items: items}
}

// noop metrics keep repeated stack construction off the global prometheus
// registry.
type noopReviewMetrics struct{}

func (noopReviewMetrics) DecisionSealed(_, _ string) {}
func (noopReviewMetrics) ConflictRejected()          {}
func (noopReviewMetrics) SelfApprovalBlocked()       {}
func (noopReviewMetrics) VerifyResult(bool)          {}

type noopTokenMetrics struct{}

func (noopTokenMetrics) TokenMinted()         {}
func (noopTokenMetrics) TokenConsumed(string) {}

func (s *testStack) seedItem(t *testing.T, amount string) domain.CheckItemID {
	t.Helper()
	parsed, err := domain.ParseAmount(amount)
	require.NoError(t, err)
	id := domain.CheckItemID(uuid.New())
	s.items.Put(&review.CheckItem{
		ID:       id,
		TenantID: domain.TenantID(uuid.New()),
		Amount:   parsed,
		ImageHashes: map[string]string{
			"front": "sha256:" + uuid.NewString(),
			"back":  "sha256:" + uuid.NewString(),
		},
	})
	return id
}

func (s *testStack) do(t *testing.T, userID string, method, path string, body any) *struct {
	Code int
	JSON map[string]any
} {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	req = testutil.WithIdentity(req, userID, uuid.NewString())
	rr := testutil.DoRequest(s.router, req)

	out := &struct {
		Code int
		JSON map[string]any
	}{Code: rr.Code}
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out.JSON))
	}
	return out
}

func TestDecisionFlow_RoutineApproval(t *testing.T) {
	stack := newTestStack(t)
	itemID := stack.seedItem(t, "150.00")
	reviewer := uuid.NewString()

	res := stack.do(t, reviewer, http.MethodPost, "/review/decisions", map[string]any{
		"check_item_id":    itemID.String(),
		"action":           "approve",
		"notes":            "signature matches, amount in range",
		"based_on_version": 0,
	})
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, "APPROVED", res.JSON["status"])
	assert.Equal(t, reviewer, res.JSON["reviewer_id"])
	assert.NotEmpty(t, res.JSON["evidence_hash"])

	verify := stack.do(t, reviewer, http.MethodGet, "/review/check-items/"+itemID.String()+"/chain", nil)
	require.Equal(t, http.StatusOK, verify.Code)
	assert.Equal(t, true, verify.JSON["valid"])
}

func TestDecisionFlow_HoldThenApproveBuildsChain(t *testing.T) {
	stack := newTestStack(t)
	itemID := stack.seedItem(t, "150.00")
	reviewer := uuid.NewString()

	hold := stack.do(t, reviewer, http.MethodPost, "/review/decisions", map[string]any{
		"check_item_id":    itemID.String(),
		"action":           "hold",
		"based_on_version": 0,
	})
	require.Equal(t, http.StatusCreated, hold.Code)
	assert.Equal(t, "IN_REVIEW", hold.JSON["status"])

	approve := stack.do(t, reviewer, http.MethodPost, "/review/decisions", map[string]any{
		"check_item_id":    itemID.String(),
		"action":           "approve",
		"based_on_version": 1,
	})
	require.Equal(t, http.StatusCreated, approve.Code)
	assert.Equal(t, hold.JSON["evidence_hash"], approve.JSON["previous_hash"],
		"second decision must link to the first")

	list := stack.do(t, reviewer, http.MethodGet, "/review/check-items/"+itemID.String()+"/decisions", nil)
	require.Equal(t, http.StatusOK, list.Code)
	decisions, ok := list.JSON["decisions"].([]any)
	require.True(t, ok)
	assert.Len(t, decisions, 2)

	verify := stack.do(t, reviewer, http.MethodGet, "/review/check-items/"+itemID.String()+"/chain", nil)
	require.Equal(t, http.StatusOK, verify.Code)
	assert.Equal(t, true, verify.JSON["valid"])
}

func TestDecisionFlow_StaleVersionConflicts(t *testing.T) {
	stack := newTestStack(t)
	itemID := stack.seedItem(t, "150.00")
	reviewer := uuid.NewString()

	first := stack.do(t, reviewer, http.MethodPost, "/review/decisions", map[string]any{
		"check_item_id":    itemID.String(),
		"action":           "hold",
		"based_on_version": 0,
	})
	require.Equal(t, http.StatusCreated, first.Code)

	stale := stack.do(t, reviewer, http.MethodPost, "/review/decisions", map[string]any{
		"check_item_id":    itemID.String(),
		"action":           "approve",
		"based_on_version": 0,
	})
	require.Equal(t, http.StatusConflict, stale.Code)
	assert.Equal(t, "conflict", stale.JSON["error"])
}

func TestDecisionFlow_DualControl(t *testing.T) {
	stack := newTestStack(t)
	itemID := stack.seedItem(t, "25000.00")
	reviewer := uuid.NewString()
	approver := uuid.NewString()

	created := stack.do(t, reviewer, http.MethodPost, "/review/decisions", map[string]any{
		"check_item_id":    itemID.String(),
		"action":           "approve",
		"based_on_version": 0,
	})
	require.Equal(t, http.StatusCreated, created.Code)
	require.Equal(t, "PENDING_DUAL_CONTROL", created.JSON["status"])
	decisionID, _ := created.JSON["id"].(string)
	require.NotEmpty(t, decisionID)

	selfApproval := stack.do(t, reviewer, http.MethodPost,
		"/review/decisions/"+decisionID+"/dual-control",
		map[string]any{"approve": true})
	require.Equal(t, http.StatusForbidden, selfApproval.Code)
	assert.Equal(t, "permission", selfApproval.JSON["error"])

	resolved := stack.do(t, approver, http.MethodPost,
		"/review/decisions/"+decisionID+"/dual-control",
		map[string]any{"approve": true, "notes": "second pair of eyes"})
	require.Equal(t, http.StatusOK, resolved.Code)
	assert.Equal(t, "APPROVED", resolved.JSON["status"])
	assert.Equal(t, approver, resolved.JSON["approver_id"])

	verify := stack.do(t, approver, http.MethodGet, "/review/check-items/"+itemID.String()+"/chain", nil)
	require.Equal(t, http.StatusOK, verify.Code)
	assert.Equal(t, true, verify.JSON["valid"])
}

func TestImageTokenFlow_MintAndConsumeOnce(t *testing.T) {
	stack := newTestStack(t)
	itemID := stack.seedItem(t, "150.00")
	reviewer := uuid.NewString()

	minted := stack.do(t, reviewer, http.MethodPost, "/images/tokens", map[string]any{
		"check_item_id": itemID.String(),
		"side":          "front",
	})
	require.Equal(t, http.StatusCreated, minted.Code)
	token, _ := minted.JSON["token"].(string)
	require.NotEmpty(t, token)

	consumed := stack.do(t, "", http.MethodPost, "/images/tokens/consume", map[string]any{
		"token": token,
	})
	require.Equal(t, http.StatusOK, consumed.Code)
	assert.Equal(t, itemID.String(), consumed.JSON["check_item_id"])
	assert.Equal(t, "front", consumed.JSON["side"])

	replayed := stack.do(t, "", http.MethodPost, "/images/tokens/consume", map[string]any{
		"token": token,
	})
	require.Equal(t, http.StatusGone, replayed.Code)
	assert.Equal(t, "expired_or_consumed", replayed.JSON["error"])
}

func TestRouterRequiresIdentityForReviewRoutes(t *testing.T) {
	stack := newTestStack(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/review/decisions", map[string]any{})
	rr := testutil.DoRequest(stack.router, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
