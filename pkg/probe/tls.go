package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/common"
)

// TLSProbe performs a handshake without trusting it, then verifies the
// presented chain and host separately so both facts can be reported.
type TLSProbe struct {
	guard *Guard
	// Roots overrides the system pool; nil means system roots.
	Roots *x509.CertPool
	now   func() time.Time
}

func NewTLSProbe(guard *Guard) *TLSProbe {
	return &TLSProbe{guard: guard, now: time.Now}
}

func (p *TLSProbe) Inspect(ctx context.Context, host, port string) (Certificate, error) {
	var cert Certificate
	host = common.ASCIIHost(host)
	if port == "" {
		port = "443"
	}

	rawConn, err := p.guard.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return cert, fmt.Errorf("%w: tcp dial failed: %w", ErrUnavailable, err)
	}
	defer rawConn.Close()

	tlsConn := tls.Client(rawConn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
	})
	defer tlsConn.Close()

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return cert, fmt.Errorf("%w: tls handshake failed: %v", ErrUnavailable, err)
	}

	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return cert, fmt.Errorf("%w: no peer certificates found", ErrUnavailable)
	}

	leaf := certs[0]
	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}

	now := time.Now
	if p.now != nil {
		now = p.now
	}
	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:         p.Roots,
		Intermediates: intermediates,
		CurrentTime:   now(),
	}); err != nil {
		cert.ChainError = err.Error()
	} else {
		cert.ChainValid = true
	}

	cert.HostMatch = leaf.VerifyHostname(host) == nil
	cert.IssuerOrg = common.GetIssuerOrganization(leaf)
	cert.Reliability = common.GetCertReliability(leaf, cert.IssuerOrg)
	cert.NotBefore = leaf.NotBefore
	cert.NotAfter = leaf.NotAfter

	return cert, nil
}
