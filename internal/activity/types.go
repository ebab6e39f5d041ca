// Package activity normalizes Annict activity records and renders them as
// notification text.
//
// An Activity is a tagged union: Kind decides whether Status or Episode is
// populated. Identity is the dedup key shared with the ledger.
package activity

import (
	"errors"
	"strconv"
)

// ErrMalformed is returned when a record with a recognised action is missing
// a required field or carries one of the wrong type.
var ErrMalformed = errors.New("malformed activity")

type Kind int

const (
	StatusChange Kind = iota + 1
	EpisodeRecord
)

func (k Kind) String() string {
	switch k {
	case StatusChange:
		return "status_change"
	case EpisodeRecord:
		return "episode_record"
	default:
		return "unknown"
	}
}

// Status is the upstream status kind. Values outside the known set are kept
// verbatim so they still take part in dedup, but render to nothing.
type Status string

const (
	Watching     Status = "watching"
	Watched      Status = "watched"
	WannaWatch   Status = "wanna_watch"
	OnHold       Status = "on_hold"
	StopWatching Status = "stop_watching"
)

func (s Status) Known() bool {
	switch s {
	case Watching, Watched, WannaWatch, OnHold, StopWatching:
		return true
	}
	return false
}

// Episode holds the variant fields of an EpisodeRecord.
type Episode struct {
	ID     int64
	Number string
	Title  string

	// Comment and RatingState are decoded but not rendered yet.
	Comment     string
	RatingState string
}

type Activity struct {
	WorkID int64
	Kind   Kind

	// Status is set iff Kind == StatusChange.
	Status Status
	// Episode is set iff Kind == EpisodeRecord.
	Episode *Episode

	WorkTitle       string
	WorkSeasonLabel string
	WorkURL         string
}

// Identity is the (work, secondary key) pair used for dedup. Two activities
// with equal identities are the same event regardless of their other fields.
type Identity struct {
	WorkID int64
	Key    string
}

// String renders the ledger line form: "<work_id> <key>".
func (id Identity) String() string {
	return strconv.FormatInt(id.WorkID, 10) + " " + id.Key
}

func (a Activity) Identity() Identity {
	id := Identity{WorkID: a.WorkID}
	switch a.Kind {
	case StatusChange:
		id.Key = string(a.Status)
	case EpisodeRecord:
		if a.Episode != nil {
			id.Key = strconv.FormatInt(a.Episode.ID, 10)
		}
	}
	return id
}
