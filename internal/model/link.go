package model

import "time"

// Link maps a short display id to a target URL. The id is assigned once
// at creation and never changes; the hash is the BLAKE3-256 fingerprint
// of the canonical URL string, used only for deduplication.
type Link struct {
	ID        string    `json:"id" db:"id"`
	Hash      []byte    `json:"-" db:"hash"`
	Link      string    `json:"link" db:"link"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Origin records which network address created a link. At most one
// origin exists per link, and only while the link is younger than the
// configured retention window.
type Origin struct {
	LinkID    string `db:"id"`
	CreatedBy []byte `db:"created_by"`
}

// Strike is a per-origin abuse counter. It is independent of any
// particular link; once the amount reaches the configured maximum, link
// creation from that origin is denied.
type Strike struct {
	Origin []byte `db:"origin"`
	Amount uint16 `db:"amount"`
}
