package model

// Permissions is the closed set of capabilities a token can carry,
// represented as a bitset.
type Permissions uint8

const (
	// PermAdmin satisfies every permission check regardless of the
	// other bits.
	PermAdmin Permissions = 1 << iota
	// PermCreateLink allows shortening URLs when link creation is
	// token-gated.
	PermCreateLink
	// PermCreateToken allows issuing new tokens.
	PermCreateToken
	// PermViewIPs allows reading the origin address of a link.
	PermViewIPs
)

// Satisfies reports whether the granted set covers every requested
// capability. Admin is a superset: if granted contains PermAdmin the
// check passes no matter what was requested.
func (granted Permissions) Satisfies(requested Permissions) bool {
	if granted&PermAdmin != 0 {
		return true
	}
	return granted&requested == requested
}

// Has reports whether a single capability bit is set.
func (granted Permissions) Has(p Permissions) bool {
	return granted&p != 0
}

// PermissionFlags is the four-flag wire/storage form of Permissions.
// The tokens table stores one boolean column per capability and the
// token-creation endpoint accepts the same four flags as JSON.
type PermissionFlags struct {
	Admin       bool `json:"admin_perm" db:"admin_perm"`
	CreateLink  bool `json:"create_link_perm" db:"create_link_perm"`
	CreateToken bool `json:"create_token_perm" db:"create_token_perm"`
	ViewIPs     bool `json:"view_ips_perm" db:"view_ips_perm"`
}

// Permissions converts the flag form into the bitset form.
func (f PermissionFlags) Permissions() Permissions {
	var p Permissions
	if f.Admin {
		p |= PermAdmin
	}
	if f.CreateLink {
		p |= PermCreateLink
	}
	if f.CreateToken {
		p |= PermCreateToken
	}
	if f.ViewIPs {
		p |= PermViewIPs
	}
	return p
}

// Flags converts the bitset form into the flag form.
func (granted Permissions) Flags() PermissionFlags {
	return PermissionFlags{
		Admin:       granted.Has(PermAdmin),
		CreateLink:  granted.Has(PermCreateLink),
		CreateToken: granted.Has(PermCreateToken),
		ViewIPs:     granted.Has(PermViewIPs),
	}
}
