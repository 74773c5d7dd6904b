package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Brand string `json:"brand" validate:"required,max=5"`
	Year  string `json:"year,omitempty" validate:"max=4"`
	Note  string `validate:"max=1"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := New().Validate(sample{Brand: "", Year: "19999", Note: "xx"})
	require.Error(t, err)

	var fields FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Equal(t, "is required", fields["brand"])
	assert.Equal(t, "must not exceed 4 characters", fields["year"])
	assert.Equal(t, "must not exceed 1 characters", fields["Note"])
}

func TestValidatePasses(t *testing.T) {
	assert.NoError(t, New().Validate(sample{Brand: "Ardbg", Year: "2001"}))
}
