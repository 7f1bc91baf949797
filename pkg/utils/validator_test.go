package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleDraft struct {
	Destination string `json:"destination" validate:"required,max=20"`
	Email       string `json:"email" validate:"omitempty,email"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sampleDraft
		wantErr string
	}{
		{name: "valid", input: sampleDraft{Destination: "Nairobi", Email: "a@b.edu"}},
		{name: "missing destination", input: sampleDraft{}, wantErr: "destination must satisfy required"},
		{name: "too long", input: sampleDraft{Destination: "Somewhere with a long name"}, wantErr: "destination must satisfy max=20"},
		{name: "bad email", input: sampleDraft{Destination: "Arusha", Email: "nope"}, wantErr: "email must satisfy email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("sarah.ali@university.suza"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-02-15 ")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, 15, d.Day())

	_, err = ParseDate("15/02/2025")
	assert.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "line one\nline two", SanitizeString("  line one\nline two\x00\x07 "))
}
