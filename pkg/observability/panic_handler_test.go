package observability

import (
	"bytes"
	"testing"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "test operation")
		panic("boom")
	}()

	entry := decodeEntry(t, &buf)
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
	if entry["panic"] != "boom" {
		t.Errorf("panic = %v, want boom", entry["panic"])
	}
	if entry["context"] != "test operation" {
		t.Errorf("context = %v, want 'test operation'", entry["context"])
	}
	if entry["stack"] == "" {
		t.Error("expected a stack trace")
	}
}

func TestMustRecover(t *testing.T) {
	if err := MustRecover(nil); err != nil {
		t.Errorf("MustRecover(nil) = %v, want nil", err)
	}

	err := func() (err error) {
		defer func() {
			err = MustRecover(recover())
		}()
		panic("bad input")
	}()

	if err == nil || err.Error() != "panic: bad input" {
		t.Errorf("err = %v, want 'panic: bad input'", err)
	}
}
