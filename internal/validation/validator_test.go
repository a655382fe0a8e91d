package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvnet/swimguard/internal/dto"
)

func TestValidator_JoinRequest_ValidAddr(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(dto.JoinRequest{Addr: "127.0.0.1:7946"})
	assert.NoError(t, err)
}

func TestValidator_JoinRequest_MissingAddr(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(dto.JoinRequest{})
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, "addr", ve.Errors[0].Field)
}

func TestValidator_JoinRequest_MalformedAddr(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(dto.JoinRequest{Addr: "not-a-hostport"})
	require.Error(t, err)
}

func TestValidator_ConfigUpdateRequest_RejectsUnknownKey(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(dto.ConfigUpdateRequest{Key: "not_a_real_key", Value: 1})
	require.Error(t, err)
}

func TestValidator_ConfigUpdateRequest_AcceptsKnownKey(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(dto.ConfigUpdateRequest{Key: "max_local_health_multiplier", Value: 8})
	assert.NoError(t, err)
}
