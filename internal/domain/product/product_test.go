package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  Status
		newStock int
		want     Status
	}{
		{"active stays active with stock", StatusActive, 5, StatusActive},
		{"active becomes sold out at zero", StatusActive, 0, StatusSoldOut},
		{"sold out recovers above zero", StatusSoldOut, 3, StatusActive},
		{"sold out stays sold out at zero", StatusSoldOut, 0, StatusSoldOut},
		{"inactive is terminal with stock", StatusInactive, 10, StatusInactive},
		{"inactive is terminal at zero", StatusInactive, 0, StatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.current, tt.newStock))
		})
	}
}
