package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eco-haat/internal/domain"
	"eco-haat/internal/feature/access"
	resp "eco-haat/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

type resolverFunc func(ctx context.Context, token string) (*domain.Session, error)

func (f resolverFunc) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	return f(ctx, token)
}

var tokens = resolverFunc(func(_ context.Context, token string) (*domain.Session, error) {
	switch token {
	case "seller-token":
		return &domain.Session{UserID: "s1", Role: domain.RoleSeller}, nil
	case "admin-token":
		return &domain.Session{UserID: "a1", Role: domain.RoleAdmin}, nil
	case "flaky":
		return nil, errors.Join(domain.ErrUnauthenticated, domain.Upstream("find", errors.New("timeout")))
	}
	return nil, domain.ErrUnauthenticated
})

func engine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(gin.H{"uid": c.GetString(KeyUserID)})) }
	r.GET("/seller/dashboard", ok)
	r.GET("/api/v1/seller/products", ok)
	r.GET("/api/v1/products", ok)
	return r
}

func get(r http.Handler, path string, hdr map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSessionFromBearerAndCookie(t *testing.T) {
	r := engine(Session(tokens, "sid", zap.NewNop()))

	w := get(r, "/api/v1/products", map[string]string{"Authorization": "Bearer seller-token"})
	assert.Equal(t, "s1", decode(t, w)["data"].(map[string]any)["uid"])

	w = get(r, "/api/v1/products", nil, &http.Cookie{Name: "sid", Value: "admin-token"})
	assert.Equal(t, "a1", decode(t, w)["data"].(map[string]any)["uid"])

	w = get(r, "/api/v1/products", map[string]string{"Authorization": "Basic Zm9vOmJhcg=="})
	assert.Equal(t, "", decode(t, w)["data"].(map[string]any)["uid"])
}

func TestSessionFailuresAreAnonymous(t *testing.T) {
	r := engine(Session(tokens, "sid", zap.NewNop()))
	for _, tok := range []string{"garbage", "flaky"} {
		w := get(r, "/api/v1/products", map[string]string{"Authorization": "Bearer " + tok})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "", decode(t, w)["data"].(map[string]any)["uid"], tok)
	}
}

func TestGatePageRedirect(t *testing.T) {
	r := engine(Session(tokens, "sid", zap.NewNop()), Gate(access.StorefrontPolicy("/login", "/")))

	w := get(r, "/seller/dashboard", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fseller%2Fdashboard", w.Header().Get("Location"))

	w = get(r, "/seller/dashboard", map[string]string{"Authorization": "Bearer seller-token"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGateAPIEnvelope(t *testing.T) {
	r := engine(Session(tokens, "sid", zap.NewNop()), Gate(access.StorefrontPolicy("/login", "/")))
	before := testutil.ToFloat64(gateDenied.WithLabelValues("seller_or_admin", "login"))

	w := get(r, "/api/v1/seller/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, resp.CodeUnauthorized, body["code"])
	assert.Equal(t, "/login?redirect=%2Fapi%2Fv1%2Fseller%2Fproducts", body["data"].(map[string]any)["redirect"])
	assert.Equal(t, before+1, testutil.ToFloat64(gateDenied.WithLabelValues("seller_or_admin", "login")))

	w = get(r, "/api/v1/products", nil)
	assert.EqualValues(t, resp.CodeOK, decode(t, w)["code"])
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := get(r, "/boom", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, resp.CodeServerError, decode(t, w)["code"])
}

func TestRequestID(t *testing.T) {
	r := engine(RequestID())

	w := get(r, "/api/v1/products", map[string]string{KeyRequestID: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(KeyRequestID))

	w = get(r, "/api/v1/products", map[string]string{KeyRequestID: strings.Repeat("x", 65)})
	assert.Len(t, w.Header().Get(KeyRequestID), 36, "oversized ids are replaced")
}

func TestRateLimit(t *testing.T) {
	r := engine(RateLimit(1, 1))
	assert.EqualValues(t, resp.CodeOK, decode(t, get(r, "/api/v1/products", nil))["code"])
	assert.EqualValues(t, resp.CodeTooManyRequests, decode(t, get(r, "/api/v1/products", nil))["code"])

	open := engine(RateLimit(0, 0))
	for i := 0; i < 5; i++ {
		assert.EqualValues(t, resp.CodeOK, decode(t, get(open, "/api/v1/products", nil))["code"])
	}
}

func TestConcurrencyLimitRespectsContext(t *testing.T) {
	release := make(chan struct{})
	r := gin.New()
	r.Use(ConcurrencyLimit(1))
	r.GET("/slow", func(c *gin.Context) { <-release; c.Status(http.StatusNoContent) })

	done := make(chan struct{})
	go func() {
		get(r, "/slow", nil)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/slow", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.EqualValues(t, resp.CodeUnavailable, decode(t, w)["code"])

	close(release)
	<-done
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Second))
	r.GET("/x", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": ok})
	})
	assert.Equal(t, true, decode(t, get(r, "/x", nil))["deadline"])
}

func TestMaskQuery(t *testing.T) {
	out := maskQuery(map[string][]string{"Password": {"hunter2"}, "page": {"2"}})
	assert.Equal(t, []string{"****"}, out["Password"])
	assert.Equal(t, []string{"2"}, out["page"])
}
