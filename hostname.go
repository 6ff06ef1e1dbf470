package atsreport

import (
	"context"
	"net"
	"os"
	"strings"
)

// HostResolver is the subset of *net.Resolver used to qualify the hostname
type HostResolver interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// ResolveHostname returns the host name items are reported for. The literal
// "localhost" is replaced by the machine's fully qualified domain name.
func ResolveHostname(ctx context.Context, host string) string {
	if host == "localhost" {
		return FQDN(ctx)
	}
	return host
}

// FQDN returns the fully qualified domain name of this machine, falling back
// to the plain hostname when no dotted name can be resolved before ctx is done.
func FQDN(ctx context.Context) string {
	return lookupFQDN(ctx, net.DefaultResolver, os.Hostname)
}

func lookupFQDN(ctx context.Context, r HostResolver, osHostname func() (string, error)) string {
	name, err := osHostname()
	if err != nil {
		return "localhost"
	}
	if cname, err := r.LookupCNAME(ctx, name); err == nil {
		if cname = strings.TrimSuffix(cname, "."); isQualified(cname) {
			return cname
		}
	}
	addrs, err := r.LookupHost(ctx, name)
	if err != nil {
		return name
	}
	for _, addr := range addrs {
		names, err := r.LookupAddr(ctx, addr)
		if err != nil {
			continue
		}
		for _, n := range names {
			if n = strings.TrimSuffix(n, "."); isQualified(n) {
				return n
			}
		}
	}
	return name
}

// isQualified reports whether name has a domain part, localhost.localdomain
// included.
func isQualified(name string) bool {
	return strings.Contains(name, ".")
}
