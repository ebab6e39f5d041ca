// Package annict fetches a user's recent activities from the Annict REST API.
package annict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"watchpost/internal/transport"
	logx "watchpost/pkg/logx"
)

const (
	DefaultBaseURL = "https://api.annict.com"

	// MaxPerPage is the largest page size the activities endpoint accepts.
	MaxPerPage = 50
)

// activityFields limits the response to what the decoder reads.
var activityFields = []string{
	"work.id",
	"work.title",
	"work.season_name_text",
	"work.official_site_url",
	"work.wikipedia_url",
	"action",
	"status.kind",
	"record.comment",
	"record.rating_state",
	"episode.number_text",
	"episode.title",
	"episode.id",
}

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Query selects one page of activities.
type Query struct {
	UserID  int64
	PerPage int
}

type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
}

func NewClient(cfg Config, httpClient *http.Client, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("annict access token is empty")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, log: log, http: httpClient}, nil
}

type activitiesResponse struct {
	Activities []json.RawMessage `json:"activities"`
}

// FetchActivities returns the newest q.PerPage activities of q.UserID,
// newest first, as raw records for the activity decoder.
func (c *Client) FetchActivities(ctx context.Context, q Query) ([]json.RawMessage, error) {
	if q.UserID <= 0 {
		return nil, fmt.Errorf("annict: invalid user id %d", q.UserID)
	}
	if q.PerPage <= 0 || q.PerPage > MaxPerPage {
		return nil, fmt.Errorf("annict: per_page must be 1..%d, got %d", MaxPerPage, q.PerPage)
	}

	reqURL, err := url.Parse(c.cfg.BaseURL + "/v1/activities")
	if err != nil {
		return nil, fmt.Errorf("annict: parse endpoint: %w", err)
	}
	params := url.Values{}
	params.Set("access_token", c.cfg.AccessToken)
	params.Set("filter_user_id", strconv.FormatInt(q.UserID, 10))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("sort_id", "desc")
	params.Set("fields", strings.Join(activityFields, ","))
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("annict: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "watchpost/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		err = redact(err)
		c.log.Error("annict request failed", logx.Err(err))
		return nil, fmt.Errorf("annict: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("annict: read response: %w", err)
	}
	c.log.Debug("annict response", logx.Int("status", resp.StatusCode), logx.Body("body", body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("annict returned error status", logx.Int("status", resp.StatusCode), logx.Body("body", body))
		return nil, &transport.StatusError{Service: "annict", Code: resp.StatusCode, Body: string(body)}
	}

	var out activitiesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		c.log.Error("annict response is not valid JSON", logx.Err(err), logx.Body("body", body))
		return nil, fmt.Errorf("annict: decode response: %w", err)
	}
	if out.Activities == nil {
		c.log.Error("annict response has no activities array", logx.Body("body", body))
		return nil, errors.New("annict: response has no activities array")
	}
	return out.Activities, nil
}

// redact strips the access token from the request URL that net/http embeds
// in transport errors.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = logx.RedactURL(ue.URL)
	}
	return err
}
