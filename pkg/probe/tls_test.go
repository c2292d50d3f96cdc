package probe

import (
	"context"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tlsServer(t *testing.T) (host, port string, roots *x509.CertPool) {
	t.Helper()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	roots = x509.NewCertPool()
	roots.AddCert(srv.Certificate())
	return u.Hostname(), u.Port(), roots
}

func TestTLSProbeInspect(t *testing.T) {
	host, port, roots := tlsServer(t)

	tests := []struct {
		name       string
		roots      *x509.CertPool
		host       string
		chainValid bool
		hostMatch  bool
	}{
		{name: "trusted root and matching IP SAN", roots: roots, host: host, chainValid: true, hostMatch: true},
		{name: "self-signed against empty pool", roots: x509.NewCertPool(), host: host, chainValid: false, hostMatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTLSProbe(nil)
			p.Roots = tt.roots

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			cert, err := p.Inspect(ctx, tt.host, port)
			require.NoError(t, err)
			assert.Equal(t, tt.chainValid, cert.ChainValid, cert.ChainError)
			assert.Equal(t, tt.hostMatch, cert.HostMatch)
			assert.False(t, cert.NotAfter.IsZero())
		})
	}
}

func TestTLSProbeHandshakeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewTLSProbe(nil).Inspect(ctx, u.Hostname(), u.Port())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTLSProbeBlockedByGuard(t *testing.T) {
	host, port, _ := tlsServer(t)

	p := NewTLSProbe(&Guard{BlockPrivate: true})
	_, err := p.Inspect(context.Background(), host, port)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, ErrBlockedTarget)
}

func TestGuardAllowsWhenDisabled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	conn, err := (&Guard{}).DialContext(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	conn.Close()

	var nilGuard *Guard
	conn, err = nilGuard.DialContext(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	conn.Close()
}
