package models

import "time"

// Sense is one distinct (word, meaning) pairing owned by a user. SenseHash is
// the derived content identity; (UserID, SenseHash) is unique in the store.
// Word and Meaning keep the casing of the first submission and are never
// updated afterwards.
type Sense struct {
	ID        string
	UserID    string
	SenseHash string
	Word      string
	Meaning   string
	CreatedAt time.Time
}

// Encounter is one observed occurrence of a Sense in a piece of source media.
// Context holds the surrounding sentence; the empty string is the canonical
// "no context" value. (SenseID, SourceURL, Context) is unique in the store —
// Position is deliberately not part of the duplicate key.
type Encounter struct {
	ID        string
	SenseID   string
	SourceURL string
	Position  string
	Context   string
	CreatedAt time.Time
}

// HistoryEntry is a Sense with its Encounters, both newest-first, as served
// to the dashboard.
type HistoryEntry struct {
	Sense      Sense
	Encounters []Encounter
}
