package payment

import (
	"fmt"
	"net/netip"
	"strings"
)

// allowList is a set of source prefixes. A nil or empty list admits everyone.
type allowList struct {
	prefixes []netip.Prefix
}

func newAllowList(entries []string) (*allowList, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	al := &allowList{prefixes: make([]netip.Prefix, 0, len(entries))}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("allowed ip %q: %w", e, err)
			}
			al.prefixes = append(al.prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("allowed ip %q: %w", e, err)
		}
		al.prefixes = append(al.prefixes, netip.PrefixFrom(a, a.BitLen()))
	}
	return al, nil
}

func (al *allowList) allows(remote string) bool {
	if al == nil || len(al.prefixes) == 0 {
		return true
	}
	remote = strings.TrimSpace(remote)
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		remote = ap.Addr().String()
	}
	a, err := netip.ParseAddr(remote)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range al.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
