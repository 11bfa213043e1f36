package enums

import "fmt"

// PaymentType distinguishes the billing model a charge belongs to. The
// entrada/saldo split is the legacy two-phase flow; new leads are billed as a
// single total charge.
type PaymentType string

const (
	PaymentTypeEntrada PaymentType = "entrada"
	PaymentTypeSaldo   PaymentType = "saldo"
	PaymentTypeTotal   PaymentType = "total"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeEntrada,
	PaymentTypeSaldo,
	PaymentTypeTotal,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
