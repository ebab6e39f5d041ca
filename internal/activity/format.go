package activity

import (
	"fmt"
	"strings"
)

type Locale string

const (
	LocaleJA Locale = "ja"
	LocaleEN Locale = "en"
)

func ParseLocale(s string) (Locale, error) {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case "", LocaleJA:
		return LocaleJA, nil
	case LocaleEN:
		return LocaleEN, nil
	default:
		return "", fmt.Errorf("unknown message locale %q (want ja or en)", s)
	}
}

// templates holds one locale's message shapes. Status templates take
// (season, title); the record template takes (title, number, episode title).
type templates struct {
	status        map[Status]string
	record        string
	unknownSeason string
}

var localeTemplates = map[Locale]templates{
	LocaleJA: {
		status: map[Status]string{
			Watching:     "%s「%s」を観始めました。",
			Watched:      "%s「%s」を観終えました。",
			WannaWatch:   "%s「%s」を観たいと思っています。",
			OnHold:       "%s「%s」の視聴を一時停止しました。",
			StopWatching: "%s「%s」の視聴を中止しました。",
		},
		record:        "「%s」%s %s を観ました。",
		unknownSeason: "公開時期未定",
	},
	LocaleEN: {
		status: map[Status]string{
			Watching:     "[%s] Started watching \"%s\".",
			Watched:      "[%s] Finished watching \"%s\".",
			WannaWatch:   "[%s] Wants to watch \"%s\".",
			OnHold:       "[%s] Put \"%s\" on hold.",
			StopWatching: "[%s] Stopped watching \"%s\".",
		},
		record:        "Watched \"%s\" %s %s.",
		unknownSeason: "TBA",
	},
}

func templatesFor(loc Locale) templates {
	if t, ok := localeTemplates[loc]; ok {
		return t
	}
	return localeTemplates[LocaleJA]
}

// Format renders a as notification text. An empty result means the activity
// is not worth a notification and must be skipped.
func Format(a Activity, loc Locale) string {
	t := templatesFor(loc)

	var msg string
	switch a.Kind {
	case StatusChange:
		tmpl, ok := t.status[a.Status]
		if !ok {
			return ""
		}
		msg = fmt.Sprintf(tmpl, a.WorkSeasonLabel, a.WorkTitle)
	case EpisodeRecord:
		if a.Episode == nil {
			return ""
		}
		msg = fmt.Sprintf(t.record, a.WorkTitle, a.Episode.Number, a.Episode.Title)
	default:
		return ""
	}

	if a.WorkURL != "" {
		msg += "\n" + a.WorkURL
	}
	return msg
}
