package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimal PNG signature, enough for content sniffing
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestFetcher_Fetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/img/cat.png", func(w http.ResponseWriter, r *http.Request) { w.Write(pngHeader) })
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html><body>hi</body></html>")) })
	mux.HandleFunc("/big.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(append(pngHeader, make([]byte, 64)...))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(time.Second, 32, WithPrivateNetworks())
	ctx := context.Background()

	t.Run("Image", func(t *testing.T) {
		name, data, err := f.Fetch(ctx, srv.URL+"/img/cat.png")
		require.NoError(t, err)
		assert.Equal(t, "cat.png", name)
		assert.Equal(t, pngHeader, data)
	})

	t.Run("Not found", func(t *testing.T) {
		_, _, err := f.Fetch(ctx, srv.URL+"/missing.png")
		assert.ErrorContains(t, err, "unexpected status")
	})

	t.Run("Not an image", func(t *testing.T) {
		_, _, err := f.Fetch(ctx, srv.URL+"/page.html")
		assert.ErrorContains(t, err, "not an image")
	})

	t.Run("Too large", func(t *testing.T) {
		_, _, err := f.Fetch(ctx, srv.URL+"/big.png")
		assert.ErrorContains(t, err, "exceeds")
	})

	t.Run("Unsupported scheme", func(t *testing.T) {
		_, _, err := f.Fetch(ctx, "ftp://example.com/a.png")
		assert.Error(t, err)
	})
}

func TestFetcher_BlocksInternalHosts(t *testing.T) {
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write(pngHeader) }))
	defer internal.Close()

	f := New(time.Second, 1<<10)
	ctx := context.Background()

	t.Run("Loopback", func(t *testing.T) {
		_, _, err := f.Fetch(ctx, internal.URL+"/a.png")
		assert.ErrorIs(t, err, ErrBlockedAddress)
	})

	t.Run("Redirect into a blocked host", func(t *testing.T) {
		redirect := httptest.NewServer(http.RedirectHandler(internal.URL+"/a.png", http.StatusFound))
		defer redirect.Close()
		entry := netip.MustParseAddrPort(redirect.Listener.Addr().String())

		// only the redirecting server is reachable
		hop := New(time.Second, 1<<10)
		hop.permit = func(ap netip.AddrPort) bool { return ap == entry }
		_, _, err := hop.Fetch(ctx, redirect.URL)
		assert.ErrorIs(t, err, ErrBlockedAddress)
	})

	t.Run("Metadata address", func(t *testing.T) {
		_, _, err := f.Fetch(ctx, "http://169.254.169.254/latest/meta-data/")
		assert.ErrorIs(t, err, ErrBlockedAddress)
	})
}

func TestFetcher_RedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	f := New(time.Second, 1<<10, WithPrivateNetworks())
	_, _, err := f.Fetch(context.Background(), srv.URL+"/loop")
	assert.ErrorContains(t, err, "redirects")
}

func TestIsPublic(t *testing.T) {
	cases := map[string]bool{
		"93.184.216.34":   true,
		"2606:4700::1111": true,
		"127.0.0.1":       false,
		"10.1.2.3":        false,
		"172.16.0.1":      false,
		"192.168.1.1":     false,
		"169.254.169.254": false,
		"100.64.0.1":      false,
		"0.0.0.0":         false,
		"0.1.2.3":         false,
		"::1":             false,
		"fe80::1":         false,
		"fd00::1":         false,
		"224.0.0.1":       false,
	}
	for ip, want := range cases {
		assert.Equal(t, want, isPublic(netip.MustParseAddr(ip)), ip)
	}
}
