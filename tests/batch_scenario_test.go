package tests

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/amirphl/okosplazma-sms/app/services"
	businessflow "github.com/amirphl/okosplazma-sms/business_flow"
	"github.com/amirphl/okosplazma-sms/models"
	testingutil "github.com/amirphl/okosplazma-sms/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSpreadsheetToGatewayScenario(t *testing.T) {
	err := testingutil.TestWithGateway(func(gw *testingutil.FakeGateway) error {
		fixtures := testingutil.NewTestFixtures()
		cfg := testingutil.TestConfig(gw.URL())

		// the second recipient is refused by the gateway
		gw.RespondWith(func(q url.Values) (int, string) {
			if q.Get("number") == "+36201234567" {
				return http.StatusOK, `{"result":"ERR","code":1001,"message":"Invalid number error"}`
			}
			return http.StatusOK, `{"result":"OK","code":0}`
		})

		data, err := fixtures.BuildWorkbook([][]any{
			fixtures.Appointment("Kovács Anna", 630123456, 14, 5),
			fixtures.Appointment("Nagy Béla", "06201234567", 9, 30),
			{nil, nil, nil},
			fixtures.Appointment("Szabó", "0670555444", 10, 0),
			fixtures.Appointment("Tóth Csilla", "0670111222", 16, 45),
		})
		require.NoError(t, err)

		rows, err := services.NewSpreadsheetReader(cfg.Batch.MaxRows).ReadRows(bytes.NewReader(data))
		require.NoError(t, err)
		require.Len(t, rows, 4)

		gateway := services.NewGatewayClient(cfg.Gateway)
		flow := businessflow.NewBatchFlow(gateway, cfg.Batch.Concurrency, discardLogger())

		result, err := flow.Run(context.Background(), rows, models.TemplateKindDonation)
		require.NoError(t, err)

		t.Run("Outcome", func(t *testing.T) {
			assert.Equal(t, 4, result.RowsRead)
			assert.Equal(t, 1, result.RowsRejected)
			require.Len(t, result.Results, 3)
			assert.False(t, result.AllSucceeded)
			assert.Equal(t, 1, result.FailedCount)
			assert.Equal(t, models.DispatchStatusFailed, result.Results[1].Status)
			require.NotNil(t, result.Results[1].Gateway)
			assert.Equal(t, "1001", result.Results[1].Gateway.Code)
		})

		t.Run("GatewayRequests", func(t *testing.T) {
			reqs := gw.Requests()
			require.Len(t, reqs, 3, "every recipient is attempted once")

			first := reqs[0]
			assert.Equal(t, "/gateway", first.Path)
			assert.Equal(t, testingutil.TestGatewayKey, first.Query.Get("key"))
			assert.Equal(t, "+3630123456", first.Query.Get("number"))
			assert.Equal(t, "4,6,7", first.Query.Get("callback"))
			assert.Equal(t, "json", first.Query.Get("format"))
			assert.Equal(t,
				"Anna, ne felejtsd, hogy a holnapi nap várunk téged vérplazma donációra az OkosPlazmába, 14:05-ra! Mátészalka, Bajcsy-Zsilinszky u. 17.",
				first.Query.Get("message"))
			assert.Contains(t, first.RawQuery, "message=Anna%2C%20ne%20felejtsd")
			assert.NotContains(t, first.RawQuery, "+", "spaces are encoded as %20 and the plus sign of the number is escaped")

			assert.Equal(t, "+36201234567", reqs[1].Query.Get("number"))
			assert.Equal(t, "+3670111222", reqs[2].Query.Get("number"))
		})

		t.Run("KeyNeverReported", func(t *testing.T) {
			for _, r := range result.Results {
				assert.NotContains(t, r.Request, testingutil.TestGatewayKey)
				assert.Contains(t, r.Request, "key=REDACTED")
			}
		})

		t.Run("Report", func(t *testing.T) {
			_, report, err := services.NewReportWriter().WriteBatchReport(result)
			require.NoError(t, err)

			xl, err := excelize.OpenReader(bytes.NewReader(report))
			require.NoError(t, err)
			defer func() { _ = xl.Close() }()

			lines, err := xl.GetRows("Results")
			require.NoError(t, err)
			require.Len(t, lines, 4)
			assert.Equal(t, "failed", lines[2][4])
			assert.False(t, strings.Contains(strings.Join(lines[1], " "), testingutil.TestGatewayKey))
		})
		return nil
	})
	require.NoError(t, err)
}

func TestGatewayOutageScenario(t *testing.T) {
	err := testingutil.TestWithGateway(func(gw *testingutil.FakeGateway) error {
		fixtures := testingutil.NewTestFixtures()
		cfg := testingutil.TestConfig(gw.URL())
		cfg.Batch.Concurrency = 3

		gw.RespondWith(func(url.Values) (int, string) {
			return http.StatusServiceUnavailable, "maintenance"
		})

		data, err := fixtures.BuildWorkbook(fixtures.AppointmentRows(6))
		require.NoError(t, err)
		rows, err := services.NewSpreadsheetReader(0).ReadRows(bytes.NewReader(data))
		require.NoError(t, err)

		flow := businessflow.NewBatchFlow(services.NewGatewayClient(cfg.Gateway), cfg.Batch.Concurrency, discardLogger())
		result, err := flow.Run(context.Background(), rows, models.TemplateKindAppointment)
		require.NoError(t, err)

		assert.Len(t, gw.Requests(), 6)
		assert.Equal(t, 6, result.FailedCount)
		for i, r := range result.Results {
			assert.Equal(t, i+1, r.Recipient.Row)
			assert.Equal(t, http.StatusServiceUnavailable, r.StatusCode)
			assert.Contains(t, r.Diagnostic, "503")
		}
		return nil
	})
	require.NoError(t, err)
}
