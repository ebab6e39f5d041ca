package activity

import "testing"

func TestFormatStatus(t *testing.T) {
	t.Parallel()
	base := Activity{WorkID: 1, Kind: StatusChange, WorkTitle: "作品", WorkSeasonLabel: "2024 春"}
	tests := []struct {
		status Status
		want   string
	}{
		{Watching, "2024 春「作品」を観始めました。"},
		{Watched, "2024 春「作品」を観終えました。"},
		{WannaWatch, "2024 春「作品」を観たいと思っています。"},
		{OnHold, "2024 春「作品」の視聴を一時停止しました。"},
		{StopWatching, "2024 春「作品」の視聴を中止しました。"},
	}
	for _, tt := range tests {
		a := base
		a.Status = tt.status
		if got := Format(a, LocaleJA); got != tt.want {
			t.Fatalf("Format(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestFormatAppendsURL(t *testing.T) {
	t.Parallel()
	a := Activity{WorkID: 1, Kind: StatusChange, Status: Watched, WorkTitle: "x", WorkSeasonLabel: "公開時期未定", WorkURL: "https://annict.com/works/1"}
	want := "公開時期未定「x」を観終えました。\nhttps://annict.com/works/1"
	if got := Format(a, LocaleJA); got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestFormatRecord(t *testing.T) {
	t.Parallel()
	a := Activity{
		WorkID:    11,
		Kind:      EpisodeRecord,
		Episode:   &Episode{ID: 5, Number: "第1話", Title: "廃部!", Comment: "ignored"},
		WorkTitle: "けいおん!",
		WorkURL:   "https://annict.com/works/11/episodes/5",
	}
	want := "「けいおん!」第1話 廃部! を観ました。\nhttps://annict.com/works/11/episodes/5"
	if got := Format(a, LocaleJA); got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestFormatSuppressesUnknownStatus(t *testing.T) {
	t.Parallel()
	a := Activity{WorkID: 1, Kind: StatusChange, Status: "no_select", WorkTitle: "x", WorkURL: "https://annict.com/works/1"}
	if got := Format(a, LocaleJA); got != "" {
		t.Fatalf("expected suppression, got %q", got)
	}
	if got := Format(a, LocaleEN); got != "" {
		t.Fatalf("expected suppression, got %q", got)
	}
}

func TestFormatEnglish(t *testing.T) {
	t.Parallel()
	a := Activity{WorkID: 1, Kind: StatusChange, Status: Watching, WorkTitle: "Show", WorkSeasonLabel: "2024 Spring"}
	if got, want := Format(a, LocaleEN), "[2024 Spring] Started watching \"Show\"."; got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestParseLocale(t *testing.T) {
	t.Parallel()
	if l, err := ParseLocale(""); err != nil || l != LocaleJA {
		t.Fatalf("ParseLocale(\"\") = %q, %v", l, err)
	}
	if l, err := ParseLocale("EN"); err != nil || l != LocaleEN {
		t.Fatalf("ParseLocale(EN) = %q, %v", l, err)
	}
	if _, err := ParseLocale("fr"); err == nil {
		t.Fatal("expected error for unsupported locale")
	}
}
