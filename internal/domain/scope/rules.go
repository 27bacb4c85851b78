package scope

// pairs maps each pairable write scope to its read scope. Resources absent
// from this table (user, statistics) have no read/write coupling.
var pairs = map[Scope]Scope{
	ScopeWrite:     ScopeRead,
	RoleWrite:      RoleRead,
	BlacklistWrite: BlacklistRead,
	SettingsWrite:  SettingsRead,
}

var readToWrite = func() map[Scope]Scope {
	m := make(map[Scope]Scope, len(pairs))
	for w, r := range pairs {
		m[r] = w
	}
	return m
}()

// Pair returns the counterpart of a paired scope.
func Pair(sc Scope) (Scope, bool) {
	if r, ok := pairs[sc]; ok {
		return r, true
	}
	if w, ok := readToWrite[sc]; ok {
		return w, true
	}
	return "", false
}

// ExpandForGrant adds the paired read scope of every paired write scope in
// requested. Selecting write grants read.
func ExpandForGrant(requested Set) Set {
	out := requested.Clone()
	for _, sc := range requested.order {
		if r, ok := pairs[sc]; ok {
			out.Add(r)
		}
	}
	return out
}

// ContractForRevoke returns the revoke unit of requested: every paired read
// scope brings its write scope along, so unchecking read drops both.
func ContractForRevoke(requested Set) Set {
	out := requested.Clone()
	for _, sc := range requested.order {
		if w, ok := readToWrite[sc]; ok {
			out.Add(w)
		}
	}
	return out
}

// Revoke removes unchecked, and the scopes paired with it, from current.
func Revoke(current, unchecked Set) Set {
	drop := ContractForRevoke(unchecked)
	out := NewSet()
	for _, sc := range current.order {
		if !drop.Has(sc) {
			out.Add(sc)
		}
	}
	return out
}
