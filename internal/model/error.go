package model

// ErrorResponse is the error body the shop API returns on non-2xx responses.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes surfaced to pages.
const (
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeInvalidQuantity  = "INVALID_QUANTITY"
	ErrCodeEmptyCart        = "EMPTY_CART"
	ErrCodeMissingField     = "MISSING_FIELD"
	ErrCodeInvalidPayment   = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidPromotion = "INVALID_PROMOTION"
	ErrCodeInvalidStatus    = "INVALID_ORDER_STATUS"
	ErrCodeMissingImages    = "MISSING_IMAGES"
	ErrCodeSessionRestored  = "SESSION_ALREADY_RESTORED"
	ErrCodeSubmitInProgress = "SUBMIT_IN_PROGRESS"
)

// DomainError is a client-side validation or state error. It is raised before any
// network call is made.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotAuthenticated = NewDomainError(ErrCodeNotAuthenticated, "You must be logged in")
	ErrInvalidQuantity  = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be at least 1")
	ErrEmptyCart        = NewDomainError(ErrCodeEmptyCart, "Your cart is empty")
	ErrInvalidPayment   = NewDomainError(ErrCodeInvalidPayment, "Please choose a payment method")
	ErrInvalidStatus    = NewDomainError(ErrCodeInvalidStatus, "Unknown order status")
	ErrSessionRestored  = NewDomainError(ErrCodeSessionRestored, "Session was already restored")
	ErrSubmitInProgress = NewDomainError(ErrCodeSubmitInProgress, "An order is already being placed")
)
