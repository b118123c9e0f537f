package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{15 * time.Minute, "15:00"},
		{5*time.Minute - 800*time.Millisecond, "05:00"},
		{59 * time.Second, "00:59"},
		{time.Millisecond, "00:01"},
		{0, "00:00"},
		{-5 * time.Second, "00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRemaining(tt.in), tt.in.String())
	}
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Remaining(epoch.Add(5*time.Minute), epoch))
	assert.Equal(t, time.Duration(0), Remaining(epoch, epoch.Add(time.Second)))
}
