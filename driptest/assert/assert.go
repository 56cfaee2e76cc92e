// Package assert provides a minimal set of test assertions used
// across the extension tests.
package assert

import (
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

// Nil fails the test if given value is not nil.
func Nil(t testing.TB, value interface{}) {
	t.Helper()
	if !isNil(value) {
		t.Logf("wanted nil, got %+v", value)
		t.Logf("stack: %s", callers())
		t.Fail()
	}
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// Equal fails the test if two values are not equal.
func Equal(t testing.TB, want, got interface{}) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Logf("want %+v", want)
		t.Logf(" got %+v", got)
		t.Fail()
	}
}

// IsErr fails the test if the error is not of the wanted class.
// The want argument must implement an `Is(error) bool` check.
func IsErr(t testing.TB, want interface{ Is(error) bool }, err error) {
	t.Helper()
	if !want.Is(err) {
		t.Fatalf("unexpected error: %+v", err)
	}
}

// Panics runs given function and fails the test if it does not panic.
func Panics(t testing.TB, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		if recover() == nil {
			t.Fatal("panic expected")
		}
	}()
	fn()
}

func callers() string {
	var pcs [8]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	var out string
	for {
		frame, more := frames.Next()
		out += filepath.Base(frame.File) + ":" + frame.Function + " "
		if !more {
			return out
		}
	}
}
