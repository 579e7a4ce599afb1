package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayFailure is a well-formed gateway response with code != 0.
	ErrGatewayFailure = errors.New("payment gateway rejected the request")
	// ErrTransient covers network errors, timeouts and 5xx/429 responses.
	ErrTransient           = errors.New("payment gateway temporarily unavailable")
	ErrAmountMismatch      = errors.New("payment amount mismatch")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrMerchantMismatch    = errors.New("payment belongs to a different order")
)

type AmountMismatchError struct {
	Expected int
	Actual   int
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount mismatch: expected %d, paid %d", e.Expected, e.Actual)
}

func (e *AmountMismatchError) Is(target error) bool {
	return target == ErrAmountMismatch
}

// IsPermanent reports whether retrying cannot change the outcome.
func IsPermanent(err error) bool {
	return err != nil && !errors.Is(err, ErrTransient)
}
