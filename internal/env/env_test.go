package env

import "testing"

func TestStr(t *testing.T) {
	t.Setenv("BRIDGE_TEST_STR", "value")
	if got := Str("BRIDGE_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("got %q", got)
	}
	if got := Str("BRIDGE_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}

func TestInt(t *testing.T) {
	t.Setenv("BRIDGE_TEST_INT", "42")
	if got := Int("BRIDGE_TEST_INT", 7); got != 42 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("BRIDGE_TEST_INT", "not a number")
	if got := Int("BRIDGE_TEST_INT", 7); got != 7 {
		t.Fatalf("got %d", got)
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("BRIDGE_TEST_FLOAT", "0.6")
	if got := Float("BRIDGE_TEST_FLOAT", 0.1); got != 0.6 {
		t.Fatalf("got %v", got)
	}
}

func TestMust(t *testing.T) {
	t.Setenv("BRIDGE_TEST_MUST", "present")
	if got, err := Must("BRIDGE_TEST_MUST"); err != nil || got != "present" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := Must("BRIDGE_TEST_MUST_UNSET"); err == nil {
		t.Fatal("expected error for unset variable")
	}
}
