package email

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeResolver struct {
	mx  []*net.MX
	err error
}

func (f *fakeResolver) LookupMX(context.Context, string) ([]*net.MX, error) {
	return f.mx, f.err
}

func TestHasMX(t *testing.T) {
	v := NewVerifier(VerifierConfig{Resolver: &fakeResolver{mx: []*net.MX{{Host: "mx1.example.com"}}}})
	assert.True(t, v.HasMX(context.Background(), "example.com"))
}

func TestHasMXNoRecords(t *testing.T) {
	v := NewVerifier(VerifierConfig{Resolver: &fakeResolver{}})
	assert.False(t, v.HasMX(context.Background(), "example.com"))
}

func TestHasMXLookupError(t *testing.T) {
	v := NewVerifier(VerifierConfig{Resolver: &fakeResolver{err: errors.New("nxdomain")}})
	assert.False(t, v.HasMX(context.Background(), "nope.invalid"))
}

func TestIsDisposableLocalBlocklist(t *testing.T) {
	// blocklist hits must not reach the external classifier
	v := NewVerifier(VerifierConfig{DisposableAPI: "http://127.0.0.1:0/"})
	assert.True(t, v.IsDisposable(context.Background(), "someone@mailinator.com"))
	assert.True(t, v.IsDisposable(context.Background(), "x@YOPMAIL.com"))
}

func TestIsDisposableExternalClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/burner.example":
			w.Write([]byte(`{"disposable":true}`))
		default:
			w.Write([]byte(`{"disposable":false}`))
		}
	}))
	defer srv.Close()

	v := NewVerifier(VerifierConfig{DisposableAPI: srv.URL + "/"})
	assert.True(t, v.IsDisposable(context.Background(), "x@burner.example"))
	assert.False(t, v.IsDisposable(context.Background(), "x@normal.example"))
}

func TestIsDisposableFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewVerifier(VerifierConfig{DisposableAPI: srv.URL + "/"})
	assert.False(t, v.IsDisposable(context.Background(), "x@flaky.example"),
		"classifier failure must default to not disposable")
}

func TestIsDisposableTimeoutFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"disposable":true}`))
	}))
	defer srv.Close()

	v := NewVerifier(VerifierConfig{DisposableAPI: srv.URL + "/", Timeout: 20 * time.Millisecond})
	assert.False(t, v.IsDisposable(context.Background(), "x@slow.example"))
}

func TestIsDisposableMalformedAddress(t *testing.T) {
	v := NewVerifier(VerifierConfig{DisposableAPI: "http://127.0.0.1:0/"})
	assert.False(t, v.IsDisposable(context.Background(), "not-an-address"))
}
