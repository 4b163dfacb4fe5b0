package businessflow

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/okosplazma-sms/models"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

const (
	domesticTrunkPrefix = "06"
	trunkDigit          = "6"
	countryPrefix       = "+36"

	timeOfDayLayout = "15:04"
)

// localTimeLayouts covers spreadsheet text formats the generic parser does not know
var localTimeLayouts = []string{
	"2006.01.02. 15:04:05",
	"2006.01.02. 15:04",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"15:04:05",
	"15:04",
}

// Normalize turns a raw row into a recipient. It never fails loudly: a row with any
// field missing or unparseable is rejected by returning false.
func Normalize(row models.RawRow) (models.Recipient, bool) {
	r := models.Recipient{
		Row:             row.Row,
		FirstName:       NormalizeFirstName(row.Name),
		Phone:           NormalizePhone(row.Phone),
		AppointmentTime: NormalizeTime(row.DateTime),
	}
	if r.FirstName == "" || r.Phone == "" || r.AppointmentTime == "" {
		return models.Recipient{}, false
	}
	return r, true
}

// NormalizeRows keeps accepted rows in input order and counts the rejected ones
func NormalizeRows(rows []models.RawRow) ([]models.Recipient, int) {
	out := make([]models.Recipient, 0, len(rows))
	rejected := 0
	for _, row := range rows {
		r, ok := Normalize(row)
		if !ok {
			rejected++
			continue
		}
		out = append(out, r)
	}
	return out, rejected
}

// NormalizeFirstName takes the second whitespace token ("Family Given" order).
// Single-token or empty names yield "".
func NormalizeFirstName(name string) string {
	parts := strings.Fields(name)
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}

// NormalizePhone maps the domestic forms 06XXXXXXXX and 6XXXXXXXX to +36XXXXXXXX.
// Any other pattern yields "".
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	phone = expandScientific(phone)
	// numeric cells may carry a fractional suffix such as 630123456.0
	phone, _, _ = strings.Cut(phone, ".")

	switch {
	case strings.HasPrefix(phone, domesticTrunkPrefix):
		return strings.Replace(phone, domesticTrunkPrefix, countryPrefix, 1)
	case strings.HasPrefix(phone, trunkDigit):
		return countryPrefix + phone[len(trunkDigit):]
	default:
		return ""
	}
}

// expandScientific rewrites numbers such as 6.30123456E8 as plain digits
func expandScientific(value string) string {
	if !strings.ContainsAny(value, "eE") {
		return value
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NormalizeTime parses a generic date-time and returns its time of day as HH:MM.
// Unparseable or empty values yield "".
func NormalizeTime(value string) string {
	t, ok := parseDateTime(value)
	if !ok {
		return ""
	}
	return t.Format(timeOfDayLayout)
}

func parseDateTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	// Excel date serial from a raw cell value
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial < 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return time.Time{}, false
		}
		// half a second absorbs float drift in the fractional day
		t, err := excelize.ExcelDateToTime(serial+0.5/86400, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	if t, err := cast.ToTimeE(value); err == nil {
		return t, true
	}

	for _, layout := range localTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
