// Package testing provides test utilities: spreadsheet fixtures and a fake SMS gateway
package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/okosplazma-sms/config"
	"github.com/xuri/excelize/v2"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	// Day is the appointment date used for generated rows
	Day time.Time
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures() *TestFixtures {
	return &TestFixtures{Day: time.Date(2024, 7, 12, 0, 0, 0, 0, time.UTC)}
}

// Appointment returns one spreadsheet row: name, phone, appointment date-time
func (tf *TestFixtures) Appointment(name string, phone any, hour, minute int) []any {
	return []any{name, phone, tf.Day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)}
}

// AppointmentRows returns n valid rows with distinct phone numbers
func (tf *TestFixtures) AppointmentRows(n int) [][]any {
	rows := make([][]any, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, tf.Appointment(fmt.Sprintf("Teszt Páciens%d", i), fmt.Sprintf("0630%07d", i), 8+i%9, (i*5)%60))
	}
	return rows
}

// BuildWorkbook writes rows into the first sheet starting at A1 and returns the xlsx bytes.
// nil cells are left empty.
func (tf *TestFixtures) BuildWorkbook(rows [][]any) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			if err := xl.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to set %s: %w", cell, err)
			}
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// TestConfig returns a complete configuration suitable for tests. The gateway runs
// in mock mode unless baseURL is set.
func TestConfig(baseURL string) *config.ProductionConfig {
	gateway := config.GatewayConfig{
		Mode:     "mock",
		Callback: "4,6,7",
		Format:   "json",
		Timeout:  2 * time.Second,
	}
	if baseURL != "" {
		gateway.Mode = "http"
		gateway.BaseURL = baseURL
		gateway.Key = TestGatewayKey
	}

	return &config.ProductionConfig{
		Gateway: gateway,
		Batch: config.BatchConfig{
			Concurrency: 1,
			MaxRows:     1000,
		},
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    time.Minute,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 5 * time.Second,
			BodyLimit:       4 * 1024 * 1024,
			RequestTimeout:  time.Minute,
		},
		JWT: config.JWTConfig{
			SecretKey:      "test-secret-key-for-jwt-signing-32-chars",
			AccessTokenTTL: time.Hour,
			Issuer:         "okosplazma-sms-test",
			Audience:       "okosplazma-sms-test-operators",
		},
		Operators: config.OperatorsConfig{
			Credentials: map[string]string{TestOperator: TestOperatorPassword},
			BcryptCost:  4,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
