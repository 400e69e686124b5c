package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSatisfiesAdminSuperset(t *testing.T) {
	// Admin alone passes every possible request, including requests
	// for capabilities the token does not otherwise hold.
	admin := PermAdmin
	requests := []Permissions{
		0,
		PermCreateLink,
		PermCreateToken,
		PermViewIPs,
		PermCreateLink | PermCreateToken | PermViewIPs,
		PermAdmin,
	}
	for _, req := range requests {
		if !admin.Satisfies(req) {
			t.Errorf("admin should satisfy %08b", req)
		}
	}
}

func TestSatisfiesExactMatch(t *testing.T) {
	tests := []struct {
		name      string
		granted   Permissions
		requested Permissions
		want      bool
	}{
		{"empty grants empty request", 0, 0, true},
		{"empty denies create link", 0, PermCreateLink, false},
		{"create link grants itself", PermCreateLink, PermCreateLink, true},
		{"create link denies view ips", PermCreateLink, PermViewIPs, false},
		{"partial overlap denied", PermCreateLink, PermCreateLink | PermViewIPs, false},
		{"full set grants pair", PermCreateLink | PermCreateToken | PermViewIPs, PermCreateLink | PermViewIPs, true},
		{"non-admin denies admin request", PermCreateLink | PermCreateToken | PermViewIPs, PermAdmin, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.granted.Satisfies(tt.requested); got != tt.want {
				t.Errorf("Satisfies(%08b, %08b) = %v, want %v", tt.granted, tt.requested, got, tt.want)
			}
		})
	}
}

func TestPermissionFlagsRoundTrip(t *testing.T) {
	for p := Permissions(0); p < 16; p++ {
		if got := p.Flags().Permissions(); got != p {
			t.Errorf("round trip of %08b gave %08b", p, got)
		}
	}
}

func TestPermissionFlagsJSONNames(t *testing.T) {
	b, err := json.Marshal(PermissionFlags{Admin: true, ViewIPs: true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]bool
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"admin_perm", "create_link_perm", "create_token_perm", "view_ips_perm"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing %q in JSON output", key)
		}
	}
	if !m["admin_perm"] || m["create_link_perm"] {
		t.Errorf("unexpected flag values: %v", m)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tok := &Token{ExpiresAt: now.Add(time.Hour)}
	if tok.Expired(now) {
		t.Error("token expiring in an hour should not be expired")
	}

	tok.ExpiresAt = now.Add(-time.Hour)
	if !tok.Expired(now) {
		t.Error("token expired an hour ago should be expired")
	}

	// Expiry is strict: a token expiring exactly now is already invalid.
	tok.ExpiresAt = now
	if !tok.Expired(now) {
		t.Error("token expiring exactly now should be expired")
	}
}

func TestTokenValueNotInJSON(t *testing.T) {
	tok := Token{Value: "secret-token-value", ExpiresAt: time.Now()}
	b, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for k, v := range m {
		if s, ok := v.(string); ok && s == "secret-token-value" {
			t.Errorf("token value leaked in JSON under key %q", k)
		}
	}
}
