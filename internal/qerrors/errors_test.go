package qerrors

import (
	"errors"
	"testing"
)

func TestRequestIsNotFound(t *testing.T) {
	notFound := &Request{URL: "https://example.test", Code: 404}
	if !notFound.IsNotFound() {
		t.Errorf("expected 404 to report IsNotFound")
	}

	other := &Request{URL: "https://example.test", Code: 500}
	if other.IsNotFound() {
		t.Errorf("500 should not report IsNotFound")
	}

	transport := &Request{URL: "https://example.test", TransportCause: errors.New("dial failed")}
	if transport.IsNotFound() {
		t.Errorf("a transport failure should not report IsNotFound")
	}
}

func TestIoUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &Io{Path: "/tmp/x", Cause: cause}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should see through Io.Unwrap to the cause")
	}
}

func TestGameLaunchErrorMessages(t *testing.T) {
	cases := []struct {
		kind GameLaunchErrorKind
		want string
	}{
		{UsernameIsInvalid, "username is invalid (must not contain whitespace)"},
		{InstanceNotFound, "instance not found"},
		{VersionJsonNoArgumentsField, "version json has neither minecraftArguments nor arguments"},
	}
	for _, c := range cases {
		err := &GameLaunchError{Kind: c.kind}
		if err.Error() != c.want {
			t.Errorf("GameLaunchError{%v}.Error() = %q, want %q", c.kind, err.Error(), c.want)
		}
	}
}

func TestReadErrorPrefersIo(t *testing.T) {
	err := &ReadError{Io: &Io{Path: "p", Cause: errors.New("boom")}}
	if err.Error() == "unknown read error" {
		t.Errorf("ReadError with Io set should not report unknown")
	}
}
