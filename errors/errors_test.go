package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestRegisterRejectsDuplicateCode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("reusing an error code must panic")
		}
	}()
	Register(2, "conflicting with ErrUnauthorized")
}

func TestIs(t *testing.T) {
	cases := map[string]struct {
		kind *Error
		err  error
		want bool
	}{
		"bare root error": {
			kind: ErrNotFound,
			err:  ErrNotFound,
			want: true,
		},
		"wrapped once": {
			kind: ErrNotFound,
			err:  Wrap(ErrNotFound, "missing wallet"),
			want: true,
		},
		"wrapped twice": {
			kind: ErrNotFound,
			err:  Wrap(Wrap(ErrNotFound, "inner"), "outer"),
			want: true,
		},
		"different kind": {
			kind: ErrNotFound,
			err:  Wrap(ErrState, "missing wallet"),
			want: false,
		},
		"stdlib error": {
			kind: ErrNotFound,
			err:  fmt.Errorf("missing wallet"),
			want: false,
		},
		"nil kind matches nil error": {
			kind: nil,
			err:  nil,
			want: true,
		},
		"nil error does not match a kind": {
			kind: ErrNotFound,
			err:  nil,
			want: false,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := tc.kind.Is(tc.err); got != tc.want {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrInput, "no such field")
	if want := "no such field: invalid input"; err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	// Wrapping nil stays nil.
	if Wrap(nil, "whatever") != nil {
		t.Fatal("wrapping nil must return nil")
	}

	// The cause is preserved through many layers.
	outer := Wrapf(err, "field %q", "amount")
	if !ErrInput.Is(outer) {
		t.Fatal("cause lost during wrapping")
	}
	if !strings.HasPrefix(outer.Error(), `field "amount": `) {
		t.Fatalf("unexpected message: %q", outer.Error())
	}
}

func TestNew(t *testing.T) {
	err := ErrState.New("stream is not active")
	if !ErrState.Is(err) {
		t.Fatal("New must produce an error of its kind")
	}
	err = ErrState.Newf("stream is %s", "paused")
	if want := "stream is paused: invalid state"; err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestRecover(t *testing.T) {
	fail := func() (err error) {
		defer Recover(&err)
		panic("rekt")
	}
	err := fail()
	if !ErrPanic.Is(err) {
		t.Fatalf("want a panic error, got %+v", err)
	}
	if !strings.Contains(err.Error(), "rekt") {
		t.Fatalf("panic reason lost: %q", err.Error())
	}
}

func TestWithType(t *testing.T) {
	err := WithType(ErrType, 42)
	if !ErrType.Is(err) {
		t.Fatal("cause lost")
	}
	if !strings.Contains(err.Error(), "int") {
		t.Fatalf("type name missing: %q", err.Error())
	}
}
