package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"rate":"0.0001"}`))
	}))
	defer srv.Close()

	var out struct {
		Rate string `json:"rate"`
	}
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL,
		QueryParams: map[string][]string{"symbol": {"BTCUSDT"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "0.0001", out.Rate)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003}`))
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Contains(t, se.Body, "-1003")
}

type queryReq struct {
	Level int    `query:"level" default:"1" validate:"gte=1,lte=3"`
	Kind  string `query:"kind" validate:"omitempty,oneof=a b"`
}

type testHandler struct{}

func (testHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/q", func(c echo.Context) error {
		req := &queryReq{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("nothing yet"))
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})
}

func serve(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Envelope(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(testHandler{}, WithMetrics(reg, "/metrics", 0))

	rec := serve(s, "/q")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"message":"OK","data":{"Level":1,"Kind":""}}`, rec.Body.String())

	rec = serve(s, "/q?kind=c")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_ONEOF"`)
	assert.Contains(t, rec.Body.String(), `"field":"kind"`)

	rec = serve(s, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	rec = serve(s, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/q",status="200"} 1`)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := NewServer(testHandler{})

	req := httptest.NewRequest(http.MethodOptions, "/q", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	req = httptest.NewRequest(http.MethodGet, "/q", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example")
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://dash.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods))
}
