package probe

import (
	"context"
	"fmt"
	"net"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/common"
)

// Guard dials outbound connections and, when BlockPrivate is set, refuses
// any address that resolves to loopback, link-local or private space. The
// connection goes to the address that was checked, so a second resolution
// cannot swap it.
type Guard struct {
	BlockPrivate bool
	Resolver     *net.Resolver
	Dialer       *net.Dialer
}

func (g *Guard) resolver() *net.Resolver {
	if g != nil && g.Resolver != nil {
		return g.Resolver
	}
	return net.DefaultResolver
}

func (g *Guard) dialer() *net.Dialer {
	if g != nil && g.Dialer != nil {
		return g.Dialer
	}
	return &net.Dialer{}
}

// DialContext has the signature of http.Transport.DialContext.
func (g *Guard) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if g == nil || !g.BlockPrivate {
		return g.dialer().DialContext(ctx, network, addr)
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", addr, err)
	}

	ips, err := g.resolver().LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}
	for _, ip := range ips {
		if common.IsPrivateIP(ip.IP) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrBlockedTarget, ip.IP, host)
		}
	}

	return g.dialer().DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}
