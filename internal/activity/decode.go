package activity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	ActionCreateStatus = "create_status"
	ActionCreateRecord = "create_record"

	annictBaseURL = "https://annict.com"
)

// URLMode selects how status-change detail links are built.
type URLMode string

const (
	// WorkURLAnnict links to the work page on annict.com.
	WorkURLAnnict URLMode = "annict"
	// WorkURLOfficial prefers the official site, then Wikipedia.
	WorkURLOfficial URLMode = "official"
)

func ParseURLMode(s string) (URLMode, error) {
	switch URLMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", WorkURLAnnict:
		return WorkURLAnnict, nil
	case WorkURLOfficial:
		return WorkURLOfficial, nil
	default:
		return "", fmt.Errorf("unknown work url mode %q (want annict or official)", s)
	}
}

type DecodeOptions struct {
	URLMode URLMode
	// Locale picks the placeholder season label used when upstream has none.
	Locale Locale
}

type rawAction struct {
	Action string `json:"action"`
}

type rawActivity struct {
	Action  string      `json:"action"`
	Work    *rawWork    `json:"work"`
	Status  *rawStatus  `json:"status"`
	Record  *rawRecord  `json:"record"`
	Episode *rawEpisode `json:"episode"`
}

type rawWork struct {
	ID              *int64  `json:"id"`
	Title           *string `json:"title"`
	SeasonNameText  *string `json:"season_name_text"`
	OfficialSiteURL *string `json:"official_site_url"`
	WikipediaURL    *string `json:"wikipedia_url"`
}

type rawStatus struct {
	Kind *string `json:"kind"`
}

type rawRecord struct {
	Comment     *string `json:"comment"`
	RatingState *string `json:"rating_state"`
}

type rawEpisode struct {
	ID         *int64  `json:"id"`
	NumberText *string `json:"number_text"`
	Title      *string `json:"title"`
}

// Decode parses one upstream activity record.
//
// ok is false (with a nil error) for actions other than create_status and
// create_record. Recognised actions with missing required fields fail with an
// error wrapping ErrMalformed.
func Decode(raw json.RawMessage, opts DecodeOptions) (a Activity, ok bool, err error) {
	var head rawAction
	if err := json.Unmarshal(raw, &head); err != nil {
		return Activity{}, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if head.Action != ActionCreateStatus && head.Action != ActionCreateRecord {
		return Activity{}, false, nil
	}

	var r rawActivity
	if err := json.Unmarshal(raw, &r); err != nil {
		return Activity{}, false, fmt.Errorf("%w: %s: %v", ErrMalformed, head.Action, err)
	}

	switch r.Action {
	case ActionCreateStatus:
		a, err = decodeStatus(r, opts)
	default:
		a, err = decodeRecord(r)
	}
	if err != nil {
		return Activity{}, false, err
	}
	return a, true, nil
}

// DecodeBatch decodes a newest-first upstream batch and returns the
// recognised activities oldest-first.
func DecodeBatch(raws []json.RawMessage, opts DecodeOptions) ([]Activity, error) {
	out := make([]Activity, 0, len(raws))
	for i, raw := range raws {
		a, ok, err := Decode(raw, opts)
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}
		if ok {
			out = append(out, a)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func decodeWork(r rawActivity) (int64, string, error) {
	if r.Work == nil {
		return 0, "", missing(r.Action, "work")
	}
	if r.Work.ID == nil {
		return 0, "", missing(r.Action, "work.id")
	}
	if r.Work.Title == nil {
		return 0, "", missing(r.Action, "work.title")
	}
	return *r.Work.ID, *r.Work.Title, nil
}

func decodeStatus(r rawActivity, opts DecodeOptions) (Activity, error) {
	workID, title, err := decodeWork(r)
	if err != nil {
		return Activity{}, err
	}
	if r.Status == nil || r.Status.Kind == nil {
		return Activity{}, missing(r.Action, "status.kind")
	}
	if strings.TrimSpace(*r.Status.Kind) == "" {
		return Activity{}, fmt.Errorf("%w: %s: empty status.kind", ErrMalformed, r.Action)
	}

	a := Activity{
		WorkID:          workID,
		Kind:            StatusChange,
		Status:          Status(*r.Status.Kind),
		WorkTitle:       title,
		WorkSeasonLabel: seasonLabel(deref(r.Work.SeasonNameText), opts.Locale),
	}
	if opts.URLMode == WorkURLOfficial {
		a.WorkURL = officialURL(deref(r.Work.OfficialSiteURL), deref(r.Work.WikipediaURL))
	} else {
		a.WorkURL = annictBaseURL + "/works/" + strconv.FormatInt(workID, 10)
	}
	return a, nil
}

func decodeRecord(r rawActivity) (Activity, error) {
	workID, title, err := decodeWork(r)
	if err != nil {
		return Activity{}, err
	}
	if r.Episode == nil {
		return Activity{}, missing(r.Action, "episode")
	}
	if r.Episode.ID == nil {
		return Activity{}, missing(r.Action, "episode.id")
	}
	if r.Record == nil {
		return Activity{}, missing(r.Action, "record")
	}

	ep := &Episode{
		ID:          *r.Episode.ID,
		Number:      deref(r.Episode.NumberText),
		Title:       deref(r.Episode.Title),
		Comment:     deref(r.Record.Comment),
		RatingState: deref(r.Record.RatingState),
	}
	return Activity{
		WorkID:    workID,
		Kind:      EpisodeRecord,
		Episode:   ep,
		WorkTitle: title,
		WorkURL: annictBaseURL + "/works/" + strconv.FormatInt(workID, 10) +
			"/episodes/" + strconv.FormatInt(ep.ID, 10),
	}, nil
}

// seasonLabel turns "2024春" into "2024 春".
func seasonLabel(code string, loc Locale) string {
	if code == "" {
		return templatesFor(loc).unknownSeason
	}
	runes := []rune(code)
	if len(runes) <= 4 {
		return code + " "
	}
	return string(runes[:4]) + " " + string(runes[4:])
}

func officialURL(official, wiki string) string {
	u := strings.TrimSpace(official)
	if u == "" {
		u = strings.TrimSpace(wiki)
	}
	if u == "" {
		return ""
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

func missing(action, field string) error {
	return fmt.Errorf("%w: %s: missing %s", ErrMalformed, action, field)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
