package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGrantIsUsable(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Hour)

	tests := []struct {
		name  string
		grant Grant
		want  bool
	}{
		{
			name:  "unused and unexpired",
			grant: Grant{ExpiredAt: now.Add(24 * time.Hour)},
			want:  true,
		},
		{
			name:  "already used",
			grant: Grant{ExpiredAt: now.Add(24 * time.Hour), UsedAt: &used},
			want:  false,
		},
		{
			name:  "expired",
			grant: Grant{ExpiredAt: now.Add(-time.Minute)},
			want:  false,
		},
		{
			name:  "expires exactly now",
			grant: Grant{ExpiredAt: now},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.grant.IsUsable(now))
		})
	}
}
