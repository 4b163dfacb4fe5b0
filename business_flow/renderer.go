package businessflow

import (
	"fmt"

	"github.com/amirphl/okosplazma-sms/models"
)

// reminderTemplates holds the two fixed bodies; the verbs are first name, then HH:MM
var reminderTemplates = map[models.TemplateKind]string{
	models.TemplateKindDonation:    "%s, ne felejtsd, hogy a holnapi nap várunk téged vérplazma donációra az OkosPlazmába, %s-ra! Mátészalka, Bajcsy-Zsilinszky u. 17.",
	models.TemplateKindAppointment: "%s, holnap várunk alkalmassági vizsgálatra az OkosPlazmába %s-ra, és 5.000 Ft-ot adunk a sikeres vizsgálatért! Bajcsy-Zsilinszky u. 17.",
}

// Render produces the human-readable reminder. Transport encoding is the gateway's job.
func Render(recipient models.Recipient, kind models.TemplateKind) (string, error) {
	tmpl, ok := reminderTemplates[kind]
	if !ok {
		return "", NewBusinessErrorf("UNKNOWN_TEMPLATE", "Unknown message template %q", ErrUnknownTemplate, kind)
	}
	return fmt.Sprintf(tmpl, recipient.FirstName, recipient.AppointmentTime), nil
}

// TemplateBody returns the template text with {name} and {time} placeholders
func TemplateBody(kind models.TemplateKind) (string, error) {
	tmpl, ok := reminderTemplates[kind]
	if !ok {
		return "", NewBusinessErrorf("UNKNOWN_TEMPLATE", "Unknown message template %q", ErrUnknownTemplate, kind)
	}
	return fmt.Sprintf(tmpl, "{name}", "{time}"), nil
}
