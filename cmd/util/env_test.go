package util

import "testing"

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("DMDUMP_TEST_VAR", "value")
	if got := GetEnvWithDefault("DMDUMP_TEST_VAR", "fallback"); got != "value" {
		t.Errorf("GetEnvWithDefault = %q, want value", got)
	}
	if got := GetEnvWithDefault("DMDUMP_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnvWithDefault = %q, want fallback", got)
	}
}

func TestGetEnvIntWithDefault(t *testing.T) {
	t.Setenv("DMDUMP_TEST_INT", "5236")
	if got := GetEnvIntWithDefault("DMDUMP_TEST_INT", 1); got != 5236 {
		t.Errorf("GetEnvIntWithDefault = %d, want 5236", got)
	}

	t.Setenv("DMDUMP_TEST_INT", "not a number")
	if got := GetEnvIntWithDefault("DMDUMP_TEST_INT", 7); got != 7 {
		t.Errorf("GetEnvIntWithDefault = %d, want default 7", got)
	}
}
