package ssrf

import (
	"context"
	"net"
	"testing"
)

type stubResolver struct {
	addrs []net.IPAddr
	err   error
}

func (s stubResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return s.addrs, s.err
}

func TestGuard_CheckHost_BlocksBlockedHostname(t *testing.T) {
	g := &Guard{Resolver: stubResolver{}}
	if err := g.CheckHost(context.Background(), "metadata.google.internal"); err == nil {
		t.Fatalf("expected metadata.google.internal to be blocked")
	}
}

func TestGuard_CheckHost_BlocksBlockedSuffix(t *testing.T) {
	g := &Guard{Resolver: stubResolver{}}
	if err := g.CheckHost(context.Background(), "service.internal"); err == nil {
		t.Fatalf("expected a .internal suffix to be blocked")
	}
}

func TestGuard_CheckHost_BlocksPrivateIPLiteral(t *testing.T) {
	g := &Guard{Resolver: stubResolver{}}
	if err := g.CheckHost(context.Background(), "169.254.169.254"); err == nil {
		t.Fatalf("expected the cloud metadata IP literal to be blocked")
	}
}

func TestGuard_CheckHost_BlocksPrivateResolvedAddress(t *testing.T) {
	g := &Guard{Resolver: stubResolver{addrs: []net.IPAddr{{IP: net.ParseIP("10.0.0.1")}}}}
	if err := g.CheckHost(context.Background(), "internal-service.example.com"); err == nil {
		t.Fatalf("expected a hostname resolving to a private address to be blocked")
	}
}

func TestGuard_CheckHost_AllowsPublicAddress(t *testing.T) {
	g := &Guard{Resolver: stubResolver{addrs: []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}}}}
	if err := g.CheckHost(context.Background(), "example.com"); err != nil {
		t.Fatalf("CheckHost(public) = %v, want nil", err)
	}
}

func TestGuard_CheckHost_PropagatesResolverError(t *testing.T) {
	g := &Guard{Resolver: stubResolver{err: net.UnknownNetworkError("boom")}}
	if err := g.CheckHost(context.Background(), "example.com"); err == nil {
		t.Fatalf("expected a resolver error to propagate")
	}
}
