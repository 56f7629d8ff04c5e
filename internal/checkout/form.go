package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thomas/mayhem-terminal-go/internal/catalog"
)

// PaymentMethods are the hand-off payment options offered on the payment step.
var PaymentMethods = []string{"Cash on delivery", "Bank transfer"}

// Form is everything the shopper enters across the three steps. It is kept
// intact when moving back and forth between steps.
type Form struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Street        string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zip           string `json:"zipCode"`
	Country       string `json:"country"`
	PaymentMethod string `json:"paymentMethod"`
}

// FullName joins first and last name.
func (f *Form) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(f.FirstName) + " " + strings.TrimSpace(f.LastName))
}

// Customer converts the form into the Catalog Store contact record.
func (f *Form) Customer() catalog.Customer {
	return catalog.Customer{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Address:   strings.TrimSpace(f.Street),
		City:      strings.TrimSpace(f.City),
		State:     strings.TrimSpace(f.State),
		Zip:       strings.TrimSpace(f.Zip),
		Country:   strings.TrimSpace(f.Country),
	}
}

// FieldError is one failed field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists the fields that kept a step from advancing.
type ValidationError struct {
	Step   Step
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return fmt.Sprintf("%s: %s", e.Step, strings.Join(msgs, "; "))
}

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type requirement struct {
	field string
	label string
	value func(*Form) string
}

var stepRequirements = map[Step][]requirement{
	StepContact: {
		{"firstName", "first name", func(f *Form) string { return f.FirstName }},
		{"lastName", "last name", func(f *Form) string { return f.LastName }},
		{"email", "email", func(f *Form) string { return f.Email }},
		{"phone", "phone", func(f *Form) string { return f.Phone }},
	},
	StepAddress: {
		{"address", "street address", func(f *Form) string { return f.Street }},
		{"city", "city", func(f *Form) string { return f.City }},
		{"state", "state", func(f *Form) string { return f.State }},
		{"zipCode", "zip code", func(f *Form) string { return f.Zip }},
		{"country", "country", func(f *Form) string { return f.Country }},
	},
	StepPayment: {
		{"paymentMethod", "payment method", func(f *Form) string { return f.PaymentMethod }},
	},
}

// Validate checks the required fields of step. It returns nil or a
// *ValidationError.
func (f *Form) Validate(step Step) error {
	var fields []FieldError
	for _, r := range stepRequirements[step] {
		if strings.TrimSpace(r.value(f)) == "" {
			fields = append(fields, FieldError{Field: r.field, Message: r.label + " is required"})
		}
	}

	switch step {
	case StepContact:
		if email := strings.TrimSpace(f.Email); email != "" && !strings.Contains(email, "@") {
			fields = append(fields, FieldError{Field: "email", Message: "email must contain @"})
		}
	case StepPayment:
		if f.PaymentMethod != "" && !validPaymentMethod(f.PaymentMethod) {
			fields = append(fields, FieldError{Field: "paymentMethod", Message: "unknown payment method"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Step: step, Fields: fields}
	}
	return nil
}

func validPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

// ValidateEmail is a field validator for form inputs.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(s, "@") {
		return errors.New("email must contain @")
	}
	return nil
}
