package checkout

import (
	"context"
	"net/http"
	"testing"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingOrders struct {
	calls int
	last  model.OrderRequest
	err   error
	block chan struct{}
}

func (o *countingOrders) Place(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	o.calls++
	o.last = req
	if o.block != nil {
		<-o.block
	}
	if o.err != nil {
		return nil, o.err
	}
	return &model.Order{ID: 101}, nil
}

type stubCart struct {
	empty  bool
	resets int
}

func (c *stubCart) Empty() bool { return c.empty }
func (c *stubCart) Reset()      { c.resets++; c.empty = true }

type recordingNotes struct {
	successes []string
	errors    []string
}

func (n *recordingNotes) Success(m string) uint64 {
	n.successes = append(n.successes, m)
	return uint64(len(n.successes))
}

func (n *recordingNotes) Error(m string) uint64 {
	n.errors = append(n.errors, m)
	return uint64(len(n.errors))
}

func validForm() Form {
	return Form{
		Name:          "Ann",
		Email:         "ann@example.com",
		Phone:         "0901234567",
		Province:      "Hanoi",
		District:      "Ba Dinh",
		Ward:          "Kim Ma",
		DetailAddress: "12 Lieu Giai",
		PaymentMethod: string(PaymentCOD),
	}
}

func TestFlow_Submit_Success(t *testing.T) {
	orders := &countingOrders{}
	cart := &stubCart{}
	notes := &recordingNotes{}
	flow := NewFlow(orders, cart, notes, 2*time.Second, zerolog.Nop())

	result, err := flow.Submit(context.Background(), validForm())

	require.NoError(t, err)
	assert.Equal(t, 101, result.Order.ID)
	assert.Equal(t, "/orders/my", result.RedirectTo)
	assert.Equal(t, 2*time.Second, result.RedirectAfter)
	assert.Equal(t, StateSucceeded, flow.State())
	assert.Equal(t, 1, cart.resets)
	assert.Len(t, notes.successes, 1)
	assert.Equal(t, model.OrderRequest{
		Name:          "Ann",
		Email:         "ann@example.com",
		Phone:         "0901234567",
		Address:       "12 Lieu Giai, Kim Ma, Ba Dinh, Hanoi",
		PaymentMethod: "cod",
	}, orders.last)
}

func TestFlow_Submit_ValidationNeverCallsAPI(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(f *Form)
		expectedField string
		expectedErr   error
	}{
		{
			name:          "Empty payment method",
			mutate:        func(f *Form) { f.PaymentMethod = "" },
			expectedField: "paymentMethod",
			expectedErr:   model.ErrInvalidPayment,
		},
		{
			name:          "Unknown payment method",
			mutate:        func(f *Form) { f.PaymentMethod = "barter" },
			expectedField: "paymentMethod",
			expectedErr:   model.ErrInvalidPayment,
		},
		{
			name:          "Blank phone",
			mutate:        func(f *Form) { f.Phone = "   " },
			expectedField: "phone",
		},
		{
			name:          "Missing ward",
			mutate:        func(f *Form) { f.Ward = "" },
			expectedField: "ward",
		},
		{
			name:          "Missing street address",
			mutate:        func(f *Form) { f.DetailAddress = "" },
			expectedField: "detailAddress",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := &countingOrders{}
			notes := &recordingNotes{}
			flow := NewFlow(orders, &stubCart{}, notes, time.Second, zerolog.Nop())
			form := validForm()
			tt.mutate(&form)

			result, err := flow.Submit(context.Background(), form)

			assert.Nil(t, result)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.expectedField)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
			assert.Equal(t, 0, orders.calls)
			assert.Equal(t, StateEditing, flow.State())
			assert.Len(t, notes.errors, 1)
		})
	}
}

func TestFlow_Submit_EmptyCart(t *testing.T) {
	orders := &countingOrders{}
	flow := NewFlow(orders, &stubCart{empty: true}, &recordingNotes{}, time.Second, zerolog.Nop())

	_, err := flow.Submit(context.Background(), validForm())

	assert.ErrorIs(t, err, model.ErrEmptyCart)
	assert.Equal(t, 0, orders.calls)
}

func TestFlow_Submit_APIFailure(t *testing.T) {
	apiErr := &apiclient.Error{Method: http.MethodPost, Path: "/orders", StatusCode: http.StatusConflict, Message: "Product out of stock"}
	orders := &countingOrders{err: apiErr}
	cart := &stubCart{}
	notes := &recordingNotes{}
	flow := NewFlow(orders, cart, notes, time.Second, zerolog.Nop())

	_, err := flow.Submit(context.Background(), validForm())

	assert.ErrorIs(t, err, apiErr)
	assert.Equal(t, StateFailed, flow.State())
	assert.Zero(t, cart.resets)
	assert.False(t, cart.empty)
	assert.Equal(t, []string{"Product out of stock"}, notes.errors)

	orders.err = nil
	result, err := flow.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, 2, orders.calls)
}

func TestFlow_Submit_RejectsConcurrentSubmit(t *testing.T) {
	orders := &countingOrders{block: make(chan struct{})}
	flow := NewFlow(orders, &stubCart{}, &recordingNotes{}, time.Second, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := flow.Submit(context.Background(), validForm())
		done <- err
	}()
	require.Eventually(t, func() bool { return flow.State() == StateSubmitting }, time.Second, time.Millisecond)

	_, err := flow.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, model.ErrSubmitInProgress)

	close(orders.block)
	assert.NoError(t, <-done)
}

func TestPrefill(t *testing.T) {
	addr := &model.Address{Phone: "090", Province: "P", District: "D", Ward: "W", DetailAddress: "1 St", IsDefault: true}
	profile := &model.Profile{Name: "Ann", Email: "a@b.c"}

	form := Prefill(addr, profile)

	assert.Equal(t, "Ann", form.Name)
	assert.Equal(t, "090", form.Phone)
	assert.Equal(t, "1 St", form.DetailAddress)
	assert.Empty(t, form.PaymentMethod)
	assert.Equal(t, Form{}, Prefill(nil, nil))
}
