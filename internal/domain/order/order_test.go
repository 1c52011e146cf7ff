package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusShipping, StatusDelivered, StatusCancelled} {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for in, want := range map[string]Status{
		"pending":   StatusPending,
		"Cancelled": StatusCancelled,
		"shipping":  StatusShipping,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseStatus("REFUNDED")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipping, false},
		{StatusConfirmed, StatusShipping, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusDelivered, false},
		{StatusShipping, StatusDelivered, true},
		{StatusShipping, StatusCancelled, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCancelled, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusCancelable(t *testing.T) {
	assert.True(t, StatusPending.Cancelable())
	assert.True(t, StatusConfirmed.Cancelable())
	assert.False(t, StatusShipping.Cancelable())
	assert.False(t, StatusDelivered.Cancelable())
	assert.False(t, StatusCancelled.Cancelable())
}
