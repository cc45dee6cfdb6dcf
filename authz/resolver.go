package authz

// Capability is a named permission granted or withheld by the resolver.
type Capability string

const (
	CapDashboard Capability = "dashboard"
	CapReview    Capability = "review"
	CapAdmin     Capability = "admin"
	CapSettings  Capability = "settings"
)

// navOrder fixes the order capabilities appear in navigation.
var navOrder = []Capability{CapDashboard, CapReview, CapAdmin, CapSettings}

// CapabilitySet is the effective permission set for one caller.
type CapabilitySet map[Capability]struct{}

// Has reports whether the capability is granted.
func (cs CapabilitySet) Has(c Capability) bool {
	_, ok := cs[c]
	return ok
}

// Navigable returns the granted capabilities in navigation order.
func (cs CapabilitySet) Navigable() []Capability {
	out := make([]Capability, 0, len(cs))
	for _, c := range navOrder {
		if cs.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Resolve derives a caller's effective capability set from the active
// account context and the stored access level/role pair. The stored pair
// may exist without a context, for a caller authenticated but not yet
// scoped to an account. Resolve is a pure function and never errors:
// absent or malformed input yields the empty set.
func Resolve(acct *AccountContext, stored AccessLevel, storedRole AccountRole) CapabilitySet {
	caps := CapabilitySet{}

	if acct == nil {
		if !stored.elevated() {
			return caps
		}
		caps[CapDashboard] = struct{}{}
		caps[CapAdmin] = struct{}{}
		caps[CapSettings] = struct{}{}
		if storedRole == RoleApprover {
			caps[CapReview] = struct{}{}
		}
		return caps
	}

	caps[CapDashboard] = struct{}{}
	// Review hinges on the account role alone, independent of access level.
	if acct.Role == RoleApprover {
		caps[CapReview] = struct{}{}
	}
	if acct.AccessLevel.elevated() {
		caps[CapAdmin] = struct{}{}
		caps[CapSettings] = struct{}{}
	}
	return caps
}
