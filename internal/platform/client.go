// Package platform implements the authenticated client for the remote
// video platform API: paginated per-source listings, source metadata,
// video details, and play URLs.
//
// All failures are categorized (see ErrorKind); transport-level retry,
// backoff, and circuit breaking live in pkg/httpclient.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/version"
	"github.com/vodarr/vodarr/pkg/httpclient"
)

// Page sizes are fixed by the platform per endpoint.
const (
	favoritePageSize   = 20
	collectionPageSize = 30
	submissionPageSize = 30
	watchLaterPageSize = 20
)

// Platform-side status codes in the response envelope.
const (
	codeOK          = 0
	codeNotLoggedIn = -101
	codeForbidden   = -403
	codeNotFound    = -404
	codeRateLimited = -412
)

// API is the listing surface the sync pipeline consumes.
// *Client implements it; tests substitute fakes.
type API interface {
	// FavoriteMeta fetches the title of a favorite list.
	FavoriteMeta(ctx context.Context, fid int64) (*ListMeta, error)
	// ListFavoriteVideos returns one page of a favorite list, newest first.
	ListFavoriteVideos(ctx context.Context, fid int64, page int) ([]VideoInfo, bool, error)

	// CollectionMeta fetches the title of a collection.
	CollectionMeta(ctx context.Context, sid, mid int64, kind string) (*ListMeta, error)
	// ListCollectionVideos returns one page of a collection, newest first.
	ListCollectionVideos(ctx context.Context, sid, mid int64, kind string, page int) ([]VideoInfo, bool, error)

	// UserMeta fetches a creator's display name.
	UserMeta(ctx context.Context, mid int64) (*ListMeta, error)
	// ListSubmissionVideos returns one page of a creator's uploads, newest first.
	ListSubmissionVideos(ctx context.Context, mid int64, page int) ([]VideoInfo, bool, error)

	// ListWatchLater returns one page of the watch-later queue, newest first.
	ListWatchLater(ctx context.Context, page int) ([]VideoInfo, bool, error)

	// VideoDetail fetches full metadata for one video.
	VideoDetail(ctx context.Context, platformID string) (*VideoDetail, error)
	// PlayURL resolves the media URL for one video.
	PlayURL(ctx context.Context, platformID string) (string, error)
}

// Client is the authenticated platform API client.
type Client struct {
	cfg    config.PlatformConfig
	http   *httpclient.Client
	logger *slog.Logger
}

// NewClient creates a platform client from configuration.
func NewClient(cfg config.PlatformConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	hcfg := httpclient.DefaultConfig()
	if cfg.HTTPTimeout > 0 {
		hcfg.Timeout = cfg.HTTPTimeout
	}
	hcfg.UserAgent = cfg.UserAgent
	if hcfg.UserAgent == "" {
		hcfg.UserAgent = version.UserAgent()
	}
	hcfg.Logger = logger

	return &Client{
		cfg:    cfg,
		http:   httpclient.New(hcfg),
		logger: logger,
	}
}

// WithHTTPClient overrides the transport, primarily for tests.
func (c *Client) WithHTTPClient(hc *httpclient.Client) *Client {
	c.http = hc
	return c
}

// get performs an authenticated GET against path with query params and
// decodes the platform envelope into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return newError(KindTransient, 0, "building request", err)
	}
	if c.cfg.SessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: c.cfg.SessionCookie})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return newError(KindTransient, 0, "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return newError(KindAuth, resp.StatusCode, "authentication rejected", nil)
	case http.StatusNotFound:
		return newError(KindNotFound, resp.StatusCode, "endpoint not found", nil)
	case http.StatusTooManyRequests:
		return newError(KindRateLimited, resp.StatusCode, "rate limited", nil)
	default:
		return newError(KindTransient, resp.StatusCode, "unexpected status", nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(KindTransient, 0, "reading body", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return newError(KindMalformed, 0, "decoding envelope", err)
	}

	if env.Code != codeOK {
		return envelopeError(env)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return newError(KindMalformed, 0, "decoding payload", err)
		}
	}
	return nil
}

// envelopeError maps platform-side status codes to error kinds.
func envelopeError(env envelope) error {
	switch env.Code {
	case codeNotLoggedIn, codeForbidden:
		return newError(KindAuth, env.Code, env.Message, nil)
	case codeNotFound:
		return newError(KindNotFound, env.Code, env.Message, nil)
	case codeRateLimited:
		return newError(KindRateLimited, env.Code, env.Message, nil)
	default:
		return newError(KindTransient, env.Code, env.Message, nil)
	}
}

// listPage is the common shape of paginated listing payloads.
type listPage struct {
	Info  *struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"info"`
	Medias  []json.RawMessage `json:"medias"`
	HasMore bool              `json:"has_more"`
}

// decodeItems decodes each raw media entry, keeping the raw payload attached.
// A single undecodable item yields a zero-ID VideoInfo rather than failing
// the page; the adapter layer surfaces it as an item-level error.
func decodeItems(raws []json.RawMessage) []VideoInfo {
	items := make([]VideoInfo, 0, len(raws))
	for _, raw := range raws {
		var w wireVideo
		if err := json.Unmarshal(raw, &w); err != nil || w.ID == "" {
			items = append(items, VideoInfo{Raw: raw})
			continue
		}
		items = append(items, w.toInfo(raw))
	}
	return items
}

// FavoriteMeta fetches the title of a favorite list.
func (c *Client) FavoriteMeta(ctx context.Context, fid int64) (*ListMeta, error) {
	params := url.Values{"media_id": {fmt.Sprint(fid)}}
	var data struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := c.get(ctx, "/x/v3/fav/folder/info", params, &data); err != nil {
		return nil, err
	}
	return &ListMeta{ID: data.ID, Title: data.Title}, nil
}

// ListFavoriteVideos returns one page of a favorite list, newest first.
func (c *Client) ListFavoriteVideos(ctx context.Context, fid int64, page int) ([]VideoInfo, bool, error) {
	params := url.Values{
		"media_id": {fmt.Sprint(fid)},
		"pn":       {fmt.Sprint(page)},
		"ps":       {fmt.Sprint(favoritePageSize)},
	}
	var data listPage
	if err := c.get(ctx, "/x/v3/fav/resource/list", params, &data); err != nil {
		return nil, false, err
	}
	return decodeItems(data.Medias), data.HasMore, nil
}

// CollectionMeta fetches the title of a collection.
func (c *Client) CollectionMeta(ctx context.Context, sid, mid int64, kind string) (*ListMeta, error) {
	params := url.Values{
		"season_id": {fmt.Sprint(sid)},
		"mid":       {fmt.Sprint(mid)},
		"type":      {kind},
	}
	var data struct {
		Meta struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"meta"`
	}
	if err := c.get(ctx, "/x/polymer/space/seasons_detail", params, &data); err != nil {
		return nil, err
	}
	return &ListMeta{ID: data.Meta.ID, Title: data.Meta.Title}, nil
}

// ListCollectionVideos returns one page of a collection, newest first.
func (c *Client) ListCollectionVideos(ctx context.Context, sid, mid int64, kind string, page int) ([]VideoInfo, bool, error) {
	params := url.Values{
		"season_id": {fmt.Sprint(sid)},
		"mid":       {fmt.Sprint(mid)},
		"type":      {kind},
		"pn":        {fmt.Sprint(page)},
		"ps":        {fmt.Sprint(collectionPageSize)},
		"sort":      {"desc"},
	}
	var data listPage
	if err := c.get(ctx, "/x/polymer/space/seasons_archives_list", params, &data); err != nil {
		return nil, false, err
	}
	return decodeItems(data.Medias), data.HasMore, nil
}

// UserMeta fetches a creator's display name.
func (c *Client) UserMeta(ctx context.Context, mid int64) (*ListMeta, error) {
	params := url.Values{"mid": {fmt.Sprint(mid)}}
	var data struct {
		MID  int64  `json:"mid"`
		Name string `json:"name"`
	}
	if err := c.get(ctx, "/x/space/acc/info", params, &data); err != nil {
		return nil, err
	}
	return &ListMeta{ID: data.MID, Title: data.Name}, nil
}

// ListSubmissionVideos returns one page of a creator's uploads, newest first.
func (c *Client) ListSubmissionVideos(ctx context.Context, mid int64, page int) ([]VideoInfo, bool, error) {
	params := url.Values{
		"mid":   {fmt.Sprint(mid)},
		"pn":    {fmt.Sprint(page)},
		"ps":    {fmt.Sprint(submissionPageSize)},
		"order": {"pubdate"},
	}
	var data listPage
	if err := c.get(ctx, "/x/space/arc/search", params, &data); err != nil {
		return nil, false, err
	}
	return decodeItems(data.Medias), data.HasMore, nil
}

// ListWatchLater returns one page of the watch-later queue, newest first.
func (c *Client) ListWatchLater(ctx context.Context, page int) ([]VideoInfo, bool, error) {
	params := url.Values{
		"pn": {fmt.Sprint(page)},
		"ps": {fmt.Sprint(watchLaterPageSize)},
	}
	var data listPage
	if err := c.get(ctx, "/x/v2/history/toview", params, &data); err != nil {
		return nil, false, err
	}
	return decodeItems(data.Medias), data.HasMore, nil
}

// VideoDetail fetches full metadata for one video.
func (c *Client) VideoDetail(ctx context.Context, platformID string) (*VideoDetail, error) {
	params := url.Values{"id": {platformID}}
	var data struct {
		wireVideo
		Desc     string `json:"desc"`
		Duration int    `json:"duration"`
	}
	if err := c.get(ctx, "/x/web-interface/view", params, &data); err != nil {
		return nil, err
	}
	detail := &VideoDetail{
		VideoInfo:    data.toInfo(nil),
		Description:  data.Desc,
		DurationSecs: data.Duration,
	}
	return detail, nil
}

// PlayURL resolves the media URL for one video.
func (c *Client) PlayURL(ctx context.Context, platformID string) (string, error) {
	params := url.Values{"id": {platformID}}
	var data struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, "/x/player/playurl", params, &data); err != nil {
		return "", err
	}
	if data.URL == "" {
		return "", newError(KindMalformed, 0, "empty play url", nil)
	}
	return data.URL, nil
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)
