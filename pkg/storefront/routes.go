package storefront

import (
	"fmt"
	"path"
	"strings"
)

// DefaultGuestRoutes are the operations a visitor may perform without a
// session: checking out as a guest and probing wishlist membership.
var DefaultGuestRoutes = []string{
	"POST /orders/",
	"GET /wishlist/check/*",
}

type route struct {
	method  string
	pattern string
}

// GuestRoutes is an allow-list of "METHOD /path" patterns. A trailing "/*"
// matches any suffix; other patterns use path.Match semantics.
type GuestRoutes struct {
	routes []route
}

// ParseGuestRoutes parses entries such as "GET /wishlist/check/*". The method
// may be "*" to match any.
func ParseGuestRoutes(entries []string) (*GuestRoutes, error) {
	g := &GuestRoutes{}
	for _, e := range entries {
		fields := strings.Fields(e)
		if len(fields) != 2 || !strings.HasPrefix(fields[1], "/") {
			return nil, fmt.Errorf("storefront: invalid guest route %q, want \"METHOD /path\"", e)
		}
		if _, err := path.Match(fields[1], "/"); err != nil {
			return nil, fmt.Errorf("storefront: invalid guest route %q: %w", e, err)
		}
		g.routes = append(g.routes, route{method: strings.ToUpper(fields[0]), pattern: fields[1]})
	}
	return g, nil
}

// MustGuestRoutes is ParseGuestRoutes for hard-coded lists.
func MustGuestRoutes(entries ...string) *GuestRoutes {
	g, err := ParseGuestRoutes(entries)
	if err != nil {
		panic(err)
	}
	return g
}

// Match reports whether method and p name a guest-eligible operation.
func (g *GuestRoutes) Match(method, p string) bool {
	if g == nil {
		return false
	}
	method = strings.ToUpper(method)
	for _, r := range g.routes {
		if r.method != "*" && r.method != method {
			continue
		}
		if prefix, ok := strings.CutSuffix(r.pattern, "/*"); ok {
			if strings.HasPrefix(p, prefix+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(r.pattern, p); ok {
			return true
		}
	}
	return false
}
