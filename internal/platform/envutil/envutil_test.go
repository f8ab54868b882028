package envutil

import (
	"reflect"
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "abc")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("Int: got=%d want=7", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 42 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 42 {
		t.Fatalf("Int: got=%d want=42", got)
	}
}

func TestDurations(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_MS", "1500")
	if got := Millis("ENVUTIL_TEST_MS", time.Second); got != 1500*time.Millisecond {
		t.Fatalf("Millis: got=%s", got)
	}
	if got := Seconds("ENVUTIL_TEST_MISSING", 3*time.Second); got != 3*time.Second {
		t.Fatalf("Seconds default: got=%s", got)
	}
}

func TestBoolAndCSV(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	if Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("Bool: expected false")
	}
	t.Setenv("ENVUTIL_TEST_CSV", "a, ,b,")
	if got := CSV("ENVUTIL_TEST_CSV", nil); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("CSV: got=%v", got)
	}
}

func TestFloat64(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_FLOAT", "0.25")
	if got := Float64("ENVUTIL_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float64: got=%v", got)
	}
	t.Setenv("ENVUTIL_TEST_FLOAT", "x")
	if got := Float64("ENVUTIL_TEST_FLOAT", 1); got != 1 {
		t.Fatalf("Float64 fallback: got=%v", got)
	}
}
