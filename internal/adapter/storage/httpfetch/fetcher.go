// Package httpfetch downloads remote images so they can be re-hosted in
// the object store.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"
)

const (
	defaultMaxBytes = 10 << 20
	maxRedirects    = 3
)

// ErrBlockedAddress is returned when a URL resolves to an address that is
// not publicly routable.
var ErrBlockedAddress = errors.New("image host address is not allowed")

// carrier-grade NAT range, not covered by netip.Addr.IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

type Fetcher struct {
	client   *http.Client
	maxBytes int64
	permit   func(netip.AddrPort) bool
}

type Option func(*Fetcher)

// WithPrivateNetworks lets the fetcher reach loopback and private addresses.
// Only local tooling and tests should need it.
func WithPrivateNetworks() Option {
	return func(f *Fetcher) { f.permit = func(netip.AddrPort) bool { return true } }
}

func New(timeout time.Duration, maxBytes int64, opts ...Option) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	f := &Fetcher{
		maxBytes: maxBytes,
		permit:   func(ap netip.AddrPort) bool { return isPublic(ap.Addr().Unmap()) },
	}
	for _, opt := range opts {
		opt(f)
	}

	dialer := &net.Dialer{Timeout: timeout, Control: f.checkDial}
	transport := &http.Transport{
		// no proxy: the dial check must see the real target address
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	f.client = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
			}
			return nil
		},
	}
	return f
}

// checkDial runs after name resolution for every connection, redirects
// included, so a hostname cannot smuggle in an internal address.
func (f *Fetcher) checkDial(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil || !f.permit(ap) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	return nil
}

func isPublic(addr netip.Addr) bool {
	if addr.Is4() && addr.As4()[0] == 0 {
		return false
	}
	return addr.IsGlobalUnicast() &&
		!addr.IsPrivate() &&
		!addr.IsLoopback() &&
		!addr.IsLinkLocalUnicast() &&
		!sharedAddressSpace.Contains(addr)
}

// Fetch returns the file name from the URL path and the body. Non-image
// responses, bodies over the size limit and non-public hosts are rejected.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, fmt.Errorf("unsupported image url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return "", nil, fmt.Errorf("image %s exceeds %d bytes", rawURL, f.maxBytes)
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return "", nil, fmt.Errorf("%s is not an image (%s)", rawURL, ct)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = ""
	}
	return name, data, nil
}
