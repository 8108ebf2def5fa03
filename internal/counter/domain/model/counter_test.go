package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"Push-ups", "Push-ups", nil},
		{"  coffee cups \t", "coffee cups", nil},
		{"", "", ErrEmptyName},
		{"   \n\t ", "", ErrEmptyName},
	}
	for _, tt := range tests {
		got, err := NormalizeName(tt.in)
		assert.Equal(t, tt.want, got)
		assert.ErrorIs(t, err, tt.wantErr)
	}
}

func TestCounterPath(t *testing.T) {
	c := Counter{ID: "c1", UserID: "u1"}
	assert.Equal(t, "users/u1/counters/c1", c.Path())
}
