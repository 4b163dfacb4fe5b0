package models

import (
	"fmt"
	"strings"
)

// TemplateKind selects which reminder text a batch uses
type TemplateKind string

const (
	TemplateKindDonation    TemplateKind = "donation"
	TemplateKindAppointment TemplateKind = "appointment"
)

// String returns the string representation of the template kind
func (k TemplateKind) String() string {
	return string(k)
}

// Valid checks if the template kind is one of the two known variants
func (k TemplateKind) Valid() bool {
	switch k {
	case TemplateKindDonation, TemplateKindAppointment:
		return true
	default:
		return false
	}
}

// Label returns the operator-facing Hungarian label of the template
func (k TemplateKind) Label() string {
	switch k {
	case TemplateKindDonation:
		return "Vérplazma donáció"
	case TemplateKindAppointment:
		return "Alkalmassági vizsgálat"
	default:
		return ""
	}
}

// ParseTemplateKind converts user input into a TemplateKind
func ParseTemplateKind(value string) (TemplateKind, error) {
	k := TemplateKind(strings.ToLower(strings.TrimSpace(value)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown template kind %q", value)
	}
	return k, nil
}

// AllTemplateKinds lists the supported template kinds in display order
func AllTemplateKinds() []TemplateKind {
	return []TemplateKind{TemplateKindDonation, TemplateKindAppointment}
}
