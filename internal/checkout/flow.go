// Package checkout validates the checkout form and places the order.
package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// State is the checkout state.
type State int

const (
	StateEditing State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "editing"
	}
}

// PaymentMethod is how the buyer pays.
type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{PaymentCOD, PaymentBankTransfer, PaymentCreditCard}

// Label is the human-readable name of a method.
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCOD:
		return "Cash on delivery"
	case PaymentBankTransfer:
		return "Bank transfer"
	case PaymentCreditCard:
		return "Credit card"
	default:
		return string(p)
	}
}

func validPayment(p string) bool {
	for _, m := range PaymentMethods {
		if string(m) == p {
			return true
		}
	}
	return false
}

// OrdersRedirect is where a successful checkout lands.
const OrdersRedirect = "/orders/my"

// Form is the submitted checkout form.
type Form struct {
	Name          string
	Email         string
	Phone         string
	Province      string
	District      string
	Ward          string
	DetailAddress string
	PaymentMethod string
}

// Prefill builds a form from a saved address and the user's profile. Either may be nil.
func Prefill(addr *model.Address, profile *model.Profile) Form {
	var f Form
	if profile != nil {
		f.Name = profile.Name
		f.Email = profile.Email
	}
	if addr != nil {
		f.Phone = addr.Phone
		f.Province = addr.Province
		f.District = addr.District
		f.Ward = addr.Ward
		f.DetailAddress = addr.DetailAddress
	}
	return f
}

func (f Form) address() model.Address {
	return model.Address{
		Phone:         strings.TrimSpace(f.Phone),
		Province:      f.Province,
		District:      f.District,
		Ward:          f.Ward,
		DetailAddress: f.DetailAddress,
	}
}

// Request converts the form into the order payload.
func (f Form) Request() model.OrderRequest {
	addr := f.address()
	return model.OrderRequest{
		Name:          strings.TrimSpace(f.Name),
		Email:         strings.TrimSpace(f.Email),
		Phone:         addr.Phone,
		Address:       addr.Line(),
		PaymentMethod: f.PaymentMethod,
	}
}

// Validate checks the form without any network call.
func (f Form) Validate() error {
	verr := &ValidationError{Fields: map[string]string{}}
	required := []struct {
		field, label, value string
	}{
		{"phone", "Phone", f.Phone},
		{"province", "Province", f.Province},
		{"district", "District", f.District},
		{"ward", "Ward", f.Ward},
		{"detailAddress", "Street address", f.DetailAddress},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.add(r.field, model.NewDomainError(model.ErrCodeMissingField, r.label+" is required"))
		}
	}
	if !validPayment(f.PaymentMethod) {
		verr.add("paymentMethod", model.ErrInvalidPayment)
	}
	if len(verr.errs) > 0 {
		return verr
	}
	return nil
}

// ValidationError lists the invalid form fields.
type ValidationError struct {
	// Fields maps a form field to its message.
	Fields map[string]string
	errs   []error
}

func (e *ValidationError) add(field string, err *model.DomainError) {
	e.Fields[field] = err.Message
	e.errs = append(e.errs, err)
}

func (e *ValidationError) Error() string {
	if len(e.errs) == 0 {
		return "invalid checkout form"
	}
	return e.errs[0].Error()
}

// Unwrap exposes the underlying domain errors.
func (e *ValidationError) Unwrap() []error {
	return e.errs
}

// Orders places orders.
type Orders interface {
	Place(ctx context.Context, req model.OrderRequest) (*model.Order, error)
}

// Cart is the local cart the flow checks and clears.
type Cart interface {
	Empty() bool
	Reset()
}

// Notifier shows the outcome to the user.
type Notifier interface {
	Success(message string) uint64
	Error(message string) uint64
}

// Result describes a successful submission.
type Result struct {
	Order         *model.Order
	RedirectTo    string
	RedirectAfter time.Duration
}

// Flow is the checkout state machine for one browser request.
type Flow struct {
	mu            sync.Mutex
	state         State
	orders        Orders
	cart          Cart
	notes         Notifier
	redirectAfter time.Duration
	logger        zerolog.Logger
}

// NewFlow creates a flow in StateEditing.
func NewFlow(orders Orders, cart Cart, notes Notifier, redirectAfter time.Duration, logger zerolog.Logger) *Flow {
	return &Flow{
		orders:        orders,
		cart:          cart,
		notes:         notes,
		redirectAfter: redirectAfter,
		logger:        logger.With().Str("component", "checkout").Logger(),
	}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit validates form and places the order. Invalid input and an empty cart are
// rejected before any call; the flow then stays editable. An API failure leaves the
// local cart untouched and the flow in StateFailed, from which it may be resubmitted.
func (f *Flow) Submit(ctx context.Context, form Form) (*Result, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, model.ErrSubmitInProgress
	}
	if err := form.Validate(); err != nil {
		f.state = StateEditing
		f.mu.Unlock()
		f.notes.Error(apiclient.MessageOf(err, "Please complete the checkout form"))
		return nil, err
	}
	if f.cart.Empty() {
		f.state = StateEditing
		f.mu.Unlock()
		f.notes.Error(model.ErrEmptyCart.Message)
		return nil, model.ErrEmptyCart
	}
	f.state = StateSubmitting
	f.mu.Unlock()

	order, err := f.orders.Place(ctx, form.Request())

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateFailed
		f.logger.Warn().Err(err).Msg("checkout failed")
		f.notes.Error(apiclient.MessageOf(err, "Could not place your order, please try again"))
		return nil, err
	}

	f.state = StateSucceeded
	f.cart.Reset()
	f.notes.Success("Order placed successfully")
	f.logger.Info().Int("order_id", order.ID).Msg("checkout succeeded")
	return &Result{
		Order:         order,
		RedirectTo:    OrdersRedirect,
		RedirectAfter: f.redirectAfter,
	}, nil
}
