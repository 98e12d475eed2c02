package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	require.Equal(t, "fallback", GetEnv("SUBMIT_PATCH_TEST_UNSET", "fallback", nil))

	t.Setenv("SUBMIT_PATCH_TEST_SET", "value")
	require.Equal(t, "value", GetEnv("SUBMIT_PATCH_TEST_SET", "fallback", nil))

	t.Setenv("SUBMIT_PATCH_TEST_EMPTY", "")
	require.Equal(t, "", GetEnv("SUBMIT_PATCH_TEST_EMPTY", "fallback", nil))
}

func TestGetEnvAsInt(t *testing.T) {
	require.Equal(t, 42, GetEnvAsInt("SUBMIT_PATCH_TEST_UNSET_INT", 42, nil))

	t.Setenv("SUBMIT_PATCH_TEST_INT", "7")
	require.Equal(t, 7, GetEnvAsInt("SUBMIT_PATCH_TEST_INT", 42, nil))

	t.Setenv("SUBMIT_PATCH_TEST_BAD_INT", "seven")
	require.Equal(t, 42, GetEnvAsInt("SUBMIT_PATCH_TEST_BAD_INT", 42, nil))
}
