// Package models defines the core data structures for commitments and their secrets.
package models

import "time"

// SecretRecord is everything needed to reveal one commitment. It is created
// once at commit time and never modified afterwards.
type SecretRecord struct {
	// ID is the unique identifier for the record.
	ID string `json:"id"`
	// Scheme names the commitment scheme used.
	Scheme string `json:"scheme"`
	// Input is the committed value as UTF-8 text.
	Input string `json:"input"`
	// Pepper is the hex-encoded hiding value.
	Pepper string `json:"pepper"`
	// Commitment is the hex-encoded digest that gets published.
	Commitment string `json:"commitment"`
	// CreatedAt is when the commitment was made.
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// PublishedCommitment is a commitment as held by the registry. Input and
// Pepper stay empty until the owner reveals.
type PublishedCommitment struct {
	// ID matches the SecretRecord ID on the owner's machine.
	ID string `json:"id"`
	// Scheme names the commitment scheme used.
	Scheme string `json:"scheme"`
	// Commitment is the hex-encoded digest.
	Commitment string `json:"commitment"`
	// PublishedAt is the unix time the registry accepted the commitment.
	PublishedAt int64 `json:"published_at"`
	// Revealed
	Revealed bool `json:"revealed"`
	// Input is the revealed input.
	Input string `json:"input,omitempty"`
	// Pepper is the revealed hex pepper.
	Pepper string `json:"pepper,omitempty"`
	// RevealedAt is the unix time of the accepted reveal.
	RevealedAt int64 `json:"revealed_at,omitempty"`
}

// HistoryEntry is the local index entry kept for each commit.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Scheme     string    `json:"scheme"`
	Commitment string    `json:"commitment"`
	Path       string    `json:"path"`
	CreatedAt  time.Time `json:"created_at"`
}
