package signup

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/michraz/internal/authclient"
)

// FlowError is a signup failure with a fixed, user-facing message.
// The sentinels below are compared with errors.Is.
type FlowError struct {
	Code    string
	Message string
}

func (e *FlowError) Error() string {
	return e.Code
}

// Request-code failures. The flow returns to the form step.
var (
	ErrRateLimited       = &FlowError{Code: authclient.CodeRateLimitExceeded, Message: "שלחנו יותר מדי קודים. נסו שוב בעוד שעה."}
	ErrInvalidPhone      = &FlowError{Code: authclient.CodeInvalidPhone, Message: "מספר הטלפון לא תקין."}
	ErrRequestFailed     = &FlowError{Code: "request_failed", Message: "שגיאה בשליחת הקוד. נסו שוב."}
	ErrRequestConnection = &FlowError{Code: "connection_failed", Message: "שגיאה בחיבור לשרת. נסו שוב."}
)

// Verify-code failures. The flow stays on the code step with the code kept.
var (
	ErrInvalidCode      = &FlowError{Code: authclient.CodeInvalidCode, Message: "הקוד שגוי. נסו שוב."}
	ErrExpiredCode      = &FlowError{Code: authclient.CodeExpiredCode, Message: "הקוד פג תוקף. שלחו קוד חדש."}
	ErrVerifyFailed     = &FlowError{Code: "verify_failed", Message: "משהו השתבש. נסו שנית."}
	ErrVerifyConnection = &FlowError{Code: "connection_failed", Message: "שגיאה בחיבור. נסו שוב."}
	ErrIncompleteCode   = &FlowError{Code: "incomplete_code", Message: "יש להזין קוד בן 6 ספרות."}
)

// Flow misuse.
var (
	ErrBusy           = &FlowError{Code: "busy", Message: "הבקשה הקודמת עדיין בטיפול."}
	ErrResendCooldown = &FlowError{Code: "resend_cooldown", Message: "אפשר לשלוח קוד חדש בעוד מספר שניות."}
	ErrWrongStep      = &FlowError{Code: "invalid_step", Message: "הפעולה אינה זמינה בשלב זה."}
	ErrFlowClosed     = &FlowError{Code: "flow_closed", Message: "תהליך ההרשמה הסתיים. התחילו מחדש."}
)

// ErrFlowNotFound is returned by the store for unknown or expired flow ids.
var ErrFlowNotFound = errors.New("signup flow not found")

// mapRequestError translates a request-code failure into a FlowError.
func mapRequestError(err error) error {
	switch {
	case isConnectionError(err):
		return fmt.Errorf("%w: %v", ErrRequestConnection, err)
	case authclient.ErrorCode(err) == authclient.CodeRateLimitExceeded:
		return ErrRateLimited
	case authclient.ErrorCode(err) == authclient.CodeInvalidPhone:
		return ErrInvalidPhone
	default:
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
}

// mapVerifyError translates a verify-code failure into a FlowError.
func mapVerifyError(err error) error {
	switch {
	case isConnectionError(err):
		return fmt.Errorf("%w: %v", ErrVerifyConnection, err)
	case authclient.ErrorCode(err) == authclient.CodeInvalidCode:
		return ErrInvalidCode
	case authclient.ErrorCode(err) == authclient.CodeExpiredCode:
		return ErrExpiredCode
	default:
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
}

func isConnectionError(err error) bool {
	return errors.Is(err, authclient.ErrTransport) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// AsFlowError returns the FlowError carried by err, if any.
func AsFlowError(err error) (*FlowError, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
