package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

type depositReq struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Note   string  `json:"note" default:"manual" validate:"max=10"`
}

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.POST("/deposit", func(c echo.Context) error {
		var req depositReq
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return CreatedResponse(c, req)
	})
	e.GET("/item/:id", func(c echo.Context) error {
		err := MapError(fmt.Errorf("load %s: %w", c.Param("id"), errMissing),
			ErrorMapping{Target: errMissing, Build: NotFoundError})
		return AppErrorResponse(c, err)
	})
	e.GET("/boom", func(c echo.Context) error { panic("kaboom") })
}

func newTestServer() *Server {
	reg := prometheus.NewRegistry()
	return NewServer(routes{}, nil, WithMetrics("/metrics", reg, reg))
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestValidationAndDefaults(t *testing.T) {
	s := newTestServer()

	rec := serve(s, http.MethodPost, "/deposit", `{"amount": 500}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var ok struct {
		Data depositReq `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, "manual", ok.Data.Note)

	rec = serve(s, http.MethodPost, "/deposit", `{"amount": -1, "note": "far too long for a note"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var bad struct {
		Data []ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	require.Len(t, bad.Data, 2)
	assert.Equal(t, "amount", bad.Data[0].Field)
	assert.Equal(t, "ERR_GT", bad.Data[0].Code)
	assert.Equal(t, "ERR_MAX", bad.Data[1].Code)
}

func TestMapErrorAnswersNotFound(t *testing.T) {
	rec := serve(newTestServer(), http.MethodGet, "/item/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
	assert.Contains(t, rec.Body.String(), "load 42")
}

func TestMapErrorPassesUnknown(t *testing.T) {
	other := errors.New("boom")
	assert.Same(t, other, MapError(other, ErrorMapping{Target: errMissing, Build: NotFoundError}))
	assert.NoError(t, MapError(nil))
}

func TestRecoverAndMetrics(t *testing.T) {
	s := newTestServer()
	rec := serve(s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aktiemotor_http_requests_total{class="5xx",method="GET",route="/boom"} 1`)
}

func TestClientStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aktiemotor-test", r.Header.Get("User-Agent"))
		if r.URL.Query().Get("q") == "limit" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("slow down"))
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer ts.Close()

	c := NewClient(WithUserAgent("aktiemotor-test"))
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.SendAndParse(context.Background(), &RequestOptions{URL: ts.URL}, &out))
	assert.True(t, out.OK)

	err := c.SendAndParse(context.Background(), &RequestOptions{URL: ts.URL, QueryParams: map[string][]string{"q": {"limit"}}}, &out)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
}
