package validation

import (
	"testing"

	"beverage-backend/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Start    string `json:"work_start_time" validate:"omitempty,clock"`
	Cup      string `json:"cup_size" validate:"oneof=small large"`
}

func TestStructValid(t *testing.T) {
	err := Struct(sample{Username: "sara", Email: "sara@company.com", Start: "09:00", Cup: "small"})
	assert.NoError(t, err)
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Username: "ab", Email: "nope", Start: "25:00", Cup: "huge"})
	require.Error(t, err)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, 400, appErr.Status)

	fields := map[string]string{}
	for _, f := range appErr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Contains(t, fields, "username")
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Equal(t, "Invalid time format. Use HH:MM", fields["work_start_time"])
	assert.Contains(t, fields["cup_size"], "small large")
}
