package domain

import "fmt"

// BroadcastNodeID is the node id stamped on publications that are not
// addressed to a single downstream session.
const BroadcastNodeID = "-"

// RouteKind discriminates the routing variants of a publish call.
type RouteKind int

const (
	RouteBroadcast RouteKind = iota
	RouteProfile
	RouteTenant
)

func (k RouteKind) String() string {
	switch k {
	case RouteBroadcast:
		return "broadcast"
	case RouteProfile:
		return "profile"
	case RouteTenant:
		return "tenant"
	default:
		return "unknown"
	}
}

// Route selects the recipients of a publication. Build routes with the
// constructors; only the fields relevant to Kind are set.
type Route struct {
	Kind      RouteKind
	TenantID  string
	ProfileID int64
	NodeID    string
}

// BroadcastRoute addresses every known tenant.
func BroadcastRoute() Route {
	return Route{Kind: RouteBroadcast, NodeID: BroadcastNodeID}
}

// ProfileRoute addresses every tenant attached to the given profile.
func ProfileRoute(profileID int64) Route {
	return Route{Kind: RouteProfile, ProfileID: profileID, NodeID: BroadcastNodeID}
}

// TenantRoute addresses a single tenant session identified by node id.
func TenantRoute(tenantID, nodeID string) Route {
	return Route{Kind: RouteTenant, TenantID: tenantID, NodeID: nodeID}
}

// Validate checks the per-kind field invariants: tenant routes carry a tenant
// id and node id, profile and broadcast routes carry the broadcast node id.
func (r Route) Validate() error {
	switch r.Kind {
	case RouteBroadcast:
		if r.NodeID != BroadcastNodeID {
			return fmt.Errorf("%w: broadcast route with node id %q", ErrInvalidRoute, r.NodeID)
		}
	case RouteProfile:
		if r.ProfileID <= 0 {
			return fmt.Errorf("%w: profile route without profile id", ErrInvalidRoute)
		}
		if r.NodeID != BroadcastNodeID {
			return fmt.Errorf("%w: profile route with node id %q", ErrInvalidRoute, r.NodeID)
		}
	case RouteTenant:
		if r.TenantID == "" {
			return fmt.Errorf("%w: tenant route without tenant id", ErrInvalidRoute)
		}
		if r.NodeID == "" {
			return fmt.Errorf("%w: tenant route without node id", ErrInvalidRoute)
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidRoute, r.Kind)
	}
	return nil
}
