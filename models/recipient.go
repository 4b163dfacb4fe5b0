package models

import "strings"

// RawRow is one untyped spreadsheet row as read from the first three columns.
// An empty or whitespace-only field is treated as absent.
type RawRow struct {
	Row      int    `json:"row"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	DateTime string `json:"datetime"`
}

// IsBlank reports whether every field of the row is absent
func (r RawRow) IsBlank() bool {
	return strings.TrimSpace(r.Name) == "" &&
		strings.TrimSpace(r.Phone) == "" &&
		strings.TrimSpace(r.DateTime) == ""
}

// Recipient is a normalized reminder target. All fields are non-empty.
type Recipient struct {
	Row             int    `json:"row"`
	FirstName       string `json:"first_name"`
	Phone           string `json:"phone"`
	AppointmentTime string `json:"appointment_time"`
}
