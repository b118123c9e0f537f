package checkout

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/mcdev12/boxoffice/go/internal/routes"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)

// NormalizeReceiver trims whitespace from every field
func NormalizeReceiver(r routes.Receiver) routes.Receiver {
	return routes.Receiver{
		Name:  strings.TrimSpace(r.Name),
		Phone: strings.TrimSpace(r.Phone),
		Email: strings.TrimSpace(r.Email),
	}
}

// ValidateReceiver checks the booking form locally. The email is optional
// but must be a bare address when given.
func ValidateReceiver(r routes.Receiver) FieldErrors {
	errs := FieldErrors{}
	if r.Name == "" {
		errs[FieldReceiverName] = "Receiver name is required"
	}
	switch {
	case r.Phone == "":
		errs[FieldReceiverPhone] = "Phone number is required"
	case !phonePattern.MatchString(r.Phone):
		errs[FieldReceiverPhone] = "Phone number must be 10 or 11 digits"
	}
	if r.Email != "" {
		addr, err := mail.ParseAddress(r.Email)
		if err != nil || addr.Address != r.Email {
			errs[FieldReceiverEmail] = "Email address is invalid"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
