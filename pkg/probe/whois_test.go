package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWhois = `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.iana.org
   Registrar URL: http://res-dom.iana.org
   Updated Date: 2024-08-14T07:01:34Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2025-08-13T04:00:00Z
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Registrar IANA ID: 376
   Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
   DNSSEC: signedDelegation
`

func TestWhoisProbeParsesCreationDate(t *testing.T) {
	var asked string
	p := &WhoisProbe{query: func(domain string) (string, error) {
		asked = domain
		return sampleWhois, nil
	}}

	rec, err := p.Lookup(context.Background(), "www.example.com")
	require.NoError(t, err)

	assert.Equal(t, "example.com", asked, "lookup goes to the registrable domain")
	assert.Equal(t, "example.com", rec.Domain)
	assert.True(t, rec.CreatedAt.Equal(time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC)), "got %v", rec.CreatedAt)
}

func TestWhoisProbeFailures(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		query  func(string) (string, error)
	}{
		{
			name:   "ip literal is skipped",
			domain: "192.168.1.1",
			query: func(string) (string, error) {
				panic("must not be called")
			},
		},
		{
			name:   "query error",
			domain: "example.com",
			query:  func(string) (string, error) { return "", errors.New("connection refused") },
		},
		{
			name:   "query panic",
			domain: "example.com",
			query:  func(string) (string, error) { panic("boom") },
		},
		{
			name:   "no registrable domain",
			domain: "localhost",
			query:  func(string) (string, error) { return sampleWhois, nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &WhoisProbe{query: tt.query}
			_, err := p.Lookup(context.Background(), tt.domain)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestWhoisProbeHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p := &WhoisProbe{query: func(string) (string, error) {
		<-release
		return sampleWhois, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Lookup(ctx, "example.com")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}
