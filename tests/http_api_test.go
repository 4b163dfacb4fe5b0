package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/okosplazma-sms/app/handlers"
	"github.com/amirphl/okosplazma-sms/app/middleware"
	"github.com/amirphl/okosplazma-sms/app/router"
	"github.com/amirphl/okosplazma-sms/app/services"
	businessflow "github.com/amirphl/okosplazma-sms/business_flow"
	testingutil "github.com/amirphl/okosplazma-sms/testing"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type apiHarness struct {
	t       *testing.T
	app     *fiber.App
	gateway *services.MockGatewayClient
}

// newAPIHarness wires the full HTTP stack against a mock gateway
func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	cfg := testingutil.TestConfig("")
	logger := discardLogger()

	tokenService, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey)
	require.NoError(t, err)
	authFlow, err := businessflow.NewAuthFlow(cfg.Operators.Credentials, cfg.Operators.BcryptCost, tokenService, cfg.JWT.AccessTokenTTL, logger)
	require.NoError(t, err)

	gateway := services.NewMockGatewayClient()
	batchFlow := businessflow.NewBatchFlow(gateway, cfg.Batch.Concurrency, logger)
	batchHandler := handlers.NewBatchHandler(batchFlow, services.NewSpreadsheetReader(cfg.Batch.MaxRows), services.NewReportWriter(), cfg.Server.RequestTimeout, logger)

	r := router.NewFiberRouter(cfg, handlers.NewAuthHandler(authFlow), batchHandler, middleware.NewAuthMiddleware(tokenService), logger)
	r.SetupRoutes()

	return &apiHarness{t: t, app: r.GetApp(), gateway: gateway}
}

func (h *apiHarness) do(req *http.Request) (*http.Response, []byte) {
	h.t.Helper()
	resp, err := h.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(h.t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	_ = resp.Body.Close()
	return resp, body
}

func (h *apiHarness) envelope(body []byte) apiEnvelope {
	h.t.Helper()
	var env apiEnvelope
	require.NoError(h.t, json.Unmarshal(body, &env), string(body))
	return env
}

func (h *apiHarness) login(username, password string) (*http.Response, apiEnvelope) {
	h.t.Helper()
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, body := h.do(req)
	return resp, h.envelope(body)
}

func (h *apiHarness) token() string {
	h.t.Helper()
	resp, env := h.login(testingutil.TestOperator, testingutil.TestOperatorPassword)
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(h.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(h.t, data.AccessToken)
	return data.AccessToken
}

func (h *apiHarness) upload(path, token, template string, workbook []byte) *http.Request {
	h.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if template != "" {
		require.NoError(h.t, w.WriteField("template", template))
	}
	if workbook != nil {
		part, err := w.CreateFormFile("file", "patients.xlsx")
		require.NoError(h.t, err)
		_, err = part.Write(workbook)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func sampleWorkbook(t *testing.T) []byte {
	t.Helper()
	fixtures := testingutil.NewTestFixtures()
	data, err := fixtures.BuildWorkbook([][]any{
		fixtures.Appointment("Kovács Anna", "0630123456", 14, 5),
		fixtures.Appointment("Szabó", "0670555444", 10, 0),
		fixtures.Appointment("Nagy Béla", "0620111222", 9, 30),
	})
	require.NoError(t, err)
	return data
}

func TestHealthAndNotFound(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, h.envelope(body).Success)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body = h.do(httptest.NewRequest(http.MethodGet, "/api/v1/nothing-here", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, h.envelope(body).Success)
}

func TestLoginAPI(t *testing.T) {
	h := newAPIHarness(t)

	t.Run("WrongPassword", func(t *testing.T) {
		resp, env := h.login(testingutil.TestOperator, "wrong")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "INCORRECT_CREDENTIALS", env.Error.Code)
	})

	t.Run("MissingFields", func(t *testing.T) {
		resp, env := h.login("", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("MeAndLogout", func(t *testing.T) {
		token := h.token()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, body := h.do(req)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), testingutil.TestOperator)

		req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ = h.do(req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, body = h.do(req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "TOKEN_REVOKED", h.envelope(body).Error.Code)
	})
}

func TestBatchAPIRequiresAuthentication(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(h.upload("/api/v1/batches/send", "", "donation", sampleWorkbook(t)))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", h.envelope(body).Error.Code)

	resp, body = h.do(h.upload("/api/v1/batches/send", "not-a-jwt", "donation", sampleWorkbook(t)))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_INVALID", h.envelope(body).Error.Code)
	assert.Empty(t, h.gateway.GetSentMessages())
}

func TestBatchAPI(t *testing.T) {
	h := newAPIHarness(t)
	token := h.token()

	t.Run("Templates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, body := h.do(req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var templates []struct {
			Kind string `json:"kind"`
			Body string `json:"body"`
		}
		require.NoError(t, json.Unmarshal(h.envelope(body).Data, &templates))
		require.Len(t, templates, 2)
		for _, tmpl := range templates {
			assert.Contains(t, tmpl.Body, "{name}")
			assert.Contains(t, tmpl.Body, "{time}")
		}
	})

	t.Run("Preview", func(t *testing.T) {
		resp, body := h.do(h.upload("/api/v1/batches/preview", token, "appointment", sampleWorkbook(t)))
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var preview struct {
			RowsRead     int `json:"rows_read"`
			RowsRejected int `json:"rows_rejected"`
			Items        []struct {
				Phone   string `json:"phone"`
				Message string `json:"message"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(h.envelope(body).Data, &preview))
		assert.Equal(t, 3, preview.RowsRead)
		assert.Equal(t, 1, preview.RowsRejected)
		require.Len(t, preview.Items, 2)
		assert.Equal(t, "+3630123456", preview.Items[0].Phone)
		assert.True(t, strings.HasPrefix(preview.Items[0].Message, "Anna, holnap várunk alkalmassági vizsgálatra"))
		assert.Empty(t, h.gateway.GetSentMessages(), "preview never dispatches")
	})

	t.Run("Send", func(t *testing.T) {
		h.gateway.ClearSentMessages()
		resp, body := h.do(h.upload("/api/v1/batches/send", token, "donation", sampleWorkbook(t)))
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var result struct {
			AllSucceeded bool `json:"all_succeeded"`
			SentCount    int  `json:"sent_count"`
			Results      []struct {
				Row    int    `json:"row"`
				Status string `json:"status"`
			} `json:"results"`
		}
		require.NoError(t, json.Unmarshal(h.envelope(body).Data, &result))
		assert.True(t, result.AllSucceeded)
		assert.Equal(t, 2, result.SentCount)
		require.Len(t, result.Results, 2)
		assert.Equal(t, 1, result.Results[0].Row)
		assert.Equal(t, 3, result.Results[1].Row)
		assert.Len(t, h.gateway.GetSentMessages(), 2)
	})

	t.Run("Report", func(t *testing.T) {
		resp, body := h.do(h.upload("/api/v1/batches/report", token, "donation", sampleWorkbook(t)))
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "sms_report_")
		assert.Equal(t, "true", resp.Header.Get("X-Batch-All-Succeeded"))
		assert.NotEmpty(t, resp.Header.Get("X-Batch-ID"))

		xl, err := excelize.OpenReader(bytes.NewReader(body))
		require.NoError(t, err)
		defer func() { _ = xl.Close() }()
		rows, err := xl.GetRows("Results")
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("UploadErrors", func(t *testing.T) {
		cases := []struct {
			name     string
			template string
			workbook []byte
			code     string
		}{
			{"MissingTemplate", "", sampleWorkbook(t), "VALIDATION_ERROR"},
			{"UnknownTemplate", "birthday", sampleWorkbook(t), "VALIDATION_ERROR"},
			{"MissingFile", "donation", nil, "INVALID_REQUEST"},
			{"NotAWorkbook", "donation", []byte("name,phone,datetime"), "INVALID_SPREADSHEET"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				resp, body := h.do(h.upload("/api/v1/batches/send", token, tc.template, tc.workbook))
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
				assert.Equal(t, tc.code, h.envelope(body).Error.Code)
			})
		}
	})

	t.Run("EmptyWorkbook", func(t *testing.T) {
		empty, err := testingutil.NewTestFixtures().BuildWorkbook(nil)
		require.NoError(t, err)
		resp, body := h.do(h.upload("/api/v1/batches/send", token, "donation", empty))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "NO_ROWS", h.envelope(body).Error.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	h.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	resp, body := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
}
