package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []Item {
	return []Item{{ProductID: uuid.New(), Quantity: 2, PriceCents: 50000}}
}

func testShipping() ShippingInfo {
	return ShippingInfo{
		Name: "Asha Shrestha", Email: "asha@example.com", Phone: "+9779812345678",
		Address: "Baneshwor", City: "Kathmandu", Province: "Bagmati",
	}
}

func TestNew(t *testing.T) {
	o, err := New("user-1", testItems(), testShipping(), 100000, 10000, 11500)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, DeliveryPending, o.DeliveryStatus)
	assert.NotEmpty(t, o.TransactionUUID)
	assert.Equal(t, int64(110000), o.TotalCents, "total must equal subtotal + shipping")
	assert.Nil(t, o.GatewayRefID)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("", testItems(), testShipping(), 100000, 0, 0)
	assert.Error(t, err)

	_, err = New("user-1", nil, testShipping(), 100000, 0, 0)
	assert.Error(t, err)

	_, err = New("user-1", testItems(), testShipping(), 0, 0, 0)
	assert.Error(t, err)

	_, err = New("user-1", testItems(), testShipping(), 100000, -1, 0)
	assert.Error(t, err)
}

func TestNew_UniqueTransactionUUIDs(t *testing.T) {
	a, err := New("user-1", testItems(), testShipping(), 100000, 0, 0)
	require.NoError(t, err)
	b, err := New("user-1", testItems(), testShipping(), 100000, 0, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a.TransactionUUID, b.TransactionUUID)
}

func TestMarkCompleted(t *testing.T) {
	o, err := New("user-1", testItems(), testShipping(), 100000, 0, 0)
	require.NoError(t, err)

	require.NoError(t, o.MarkCompleted("000AWEO"))
	assert.Equal(t, StatusCompleted, o.Status)
	require.NotNil(t, o.GatewayRefID)
	assert.Equal(t, "000AWEO", *o.GatewayRefID)
}

func TestMarkCompleted_Reentrant(t *testing.T) {
	o, err := New("user-1", testItems(), testShipping(), 100000, 0, 0)
	require.NoError(t, err)
	require.NoError(t, o.MarkCompleted("REF-1"))

	// A second completion is a no-op, not an error, and must not clobber
	// the recorded gateway reference.
	require.NoError(t, o.MarkCompleted("REF-2"))
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, "REF-1", *o.GatewayRefID)
}

func TestMarkFailed(t *testing.T) {
	o, err := New("user-1", testItems(), testShipping(), 100000, 0, 0)
	require.NoError(t, err)

	require.NoError(t, o.MarkFailed())
	assert.Equal(t, StatusFailed, o.Status)

	// FAILED is terminal.
	assert.Error(t, o.MarkFailed())
	assert.Error(t, o.MarkCompleted("REF"))
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusDelivered, false},
		{StatusCompleted, StatusDelivered, true},
		{StatusCompleted, StatusFailed, false},
		{StatusDelivered, StatusCompleted, false},
		{StatusFailed, StatusCompleted, false},
	}

	for _, tt := range tests {
		o := &Order{Status: tt.from}
		assert.Equal(t, tt.want, o.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestSetDeliveryStatus(t *testing.T) {
	o, err := New("user-1", testItems(), testShipping(), 100000, 0, 0)
	require.NoError(t, err)

	require.NoError(t, o.SetDeliveryStatus(DeliveryShipped))
	assert.Equal(t, DeliveryShipped, o.DeliveryStatus)
	// Payment axis untouched.
	assert.Equal(t, StatusPending, o.Status)

	assert.Error(t, o.SetDeliveryStatus("LOST"))
}
