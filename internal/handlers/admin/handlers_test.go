package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories/memory"
	"storefront/internal/services"
	"storefront/pkg/cache"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type adminServer struct {
	router    *gin.Engine
	store     *memory.Store
	referrals services.ReferralService
}

func newAdminServer(t *testing.T) *adminServer {
	t.Helper()

	store := memory.NewStore()
	c := cache.NewMemoryCache("test:")
	cfg := &config.ReferralConfig{LinkOrigin: "https://shop.example", StatsCacheTTL: time.Minute, RetryBaseBackoff: time.Second}
	referrals := services.NewReferralService(cfg, store.ReferralStats(), store.Referrals(), nil, c, services.NewRecomputeQueue(c), nil)
	coupons := services.NewCouponService(store.Coupons(), store.ReferralStats(), 10, nil)

	referralHandler := NewReferralHandler(referrals)
	couponHandler := NewCouponHandler(coupons)

	r := gin.New()
	group := r.Group("/admin", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "admin-1")
		c.Next()
	})
	group.GET("/referrals", referralHandler.ListReferrals)
	group.POST("/referrals/:id/complete", referralHandler.CompleteReferral)
	group.POST("/referrals/:id/pay", referralHandler.MarkPaid)
	group.GET("/referrers/top", referralHandler.TopReferrers)
	group.POST("/referrers/:user_id/recompute", referralHandler.RecomputeStats)
	group.POST("/coupons", couponHandler.CreateCoupon)
	group.GET("/coupons", couponHandler.ListCoupons)
	group.GET("/tiers", referralHandler.Tiers)

	return &adminServer{router: r, store: store, referrals: referrals}
}

func (s *adminServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func (s *adminServer) pendingReferral(t *testing.T) *models.Referral {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.store.ReferralStats().Create(ctx, &models.ReferralStats{
		UserID:                "referrer",
		ReferralCode:          "FRIEND01",
		CurrentTier:           1,
		CurrentCommissionRate: 10,
	}))
	referral, err := s.referrals.TrackReferral(ctx, services.TrackReferralInput{Code: "FRIEND01", ReferredUserID: "shopper"})
	require.NoError(t, err)
	return referral
}

func TestCompleteAndPayReferral(t *testing.T) {
	s := newAdminServer(t)
	referral := s.pendingReferral(t)
	base := "/admin/referrals/" + referral.ID.Hex()

	w, env := s.do(t, http.MethodPost, base+"/complete", gin.H{"order_id": "order-1", "order_total": 200})
	require.Equal(t, http.StatusOK, w.Code)
	var result models.CompletionResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 20.0, result.CommissionEarned)
	assert.Equal(t, 10, result.CommissionRate)

	w, env = s.do(t, http.MethodPost, base+"/complete", gin.H{"order_id": "order-1", "order_total": 200})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_COMPLETED", env.Error.Code)

	w, _ = s.do(t, http.MethodPost, base+"/pay", gin.H{"payout_reference": "po_123"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/admin/referrals?status=paid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var paid []models.Referral
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	require.Len(t, paid, 1)
	assert.Equal(t, referral.ID, paid[0].ID)
}

func TestCompleteReferralBadInput(t *testing.T) {
	s := newAdminServer(t)
	referral := s.pendingReferral(t)

	w, env := s.do(t, http.MethodPost, "/admin/referrals/not-an-id/complete", gin.H{"order_id": "o", "order_total": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/admin/referrals/"+referral.ID.Hex()+"/complete", gin.H{"order_id": "o", "order_total": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Details, "OrderTotal")
}

func TestListReferralsUnknownStatus(t *testing.T) {
	s := newAdminServer(t)

	w, env := s.do(t, http.MethodGet, "/admin/referrals?status=refunded", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestRecomputeAndTopReferrers(t *testing.T) {
	s := newAdminServer(t)
	s.pendingReferral(t)

	w, env := s.do(t, http.MethodPost, "/admin/referrers/referrer/recompute", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.ReferralStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 1, stats.TotalReferrals)

	w, env = s.do(t, http.MethodPost, "/admin/referrers/nobody/recompute", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodGet, "/admin/referrers/top?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var top []models.ReferralStats
	require.NoError(t, json.Unmarshal(env.Data, &top))
	require.Len(t, top, 1)
	assert.Equal(t, "referrer", top[0].UserID)
}

func TestCouponAdmin(t *testing.T) {
	s := newAdminServer(t)

	w, env := s.do(t, http.MethodPost, "/admin/coupons", gin.H{"code": "drop-10", "type": "percentage", "value": 10})
	require.Equal(t, http.StatusCreated, w.Code)
	var coupon models.Coupon
	require.NoError(t, json.Unmarshal(env.Data, &coupon))
	assert.Equal(t, "DROP-10", coupon.Code)
	assert.Equal(t, "admin-1", coupon.CreatedBy)

	w, env = s.do(t, http.MethodPost, "/admin/coupons", gin.H{"code": "drop-10", "type": "fixed", "value": 5})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/admin/coupons", gin.H{"code": "big-one", "type": "percentage", "value": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Details, "value")

	w, env = s.do(t, http.MethodGet, "/admin/coupons", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var coupons []models.Coupon
	require.NoError(t, json.Unmarshal(env.Data, &coupons))
	assert.Len(t, coupons, 1)
}

func TestTiers(t *testing.T) {
	s := newAdminServer(t)

	w, env := s.do(t, http.MethodGet, "/admin/tiers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tiers []models.CommissionTier
	require.NoError(t, json.Unmarshal(env.Data, &tiers))
	require.NotEmpty(t, tiers)
	assert.Equal(t, 1, tiers[0].Tier)
	assert.Equal(t, 0, tiers[0].MinReferrals)
}
