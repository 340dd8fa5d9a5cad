package platform

import (
	"encoding/json"
	"time"
)

// VideoInfo is the transient metadatum yielded while listing a source.
// It carries the identifying subset of a video row plus the raw payload
// the later pipeline phases need.
type VideoInfo struct {
	// ID is the platform-side video identifier.
	ID    string
	Title string
	// ReleaseAt is the authoritative ordering key for watermarking.
	ReleaseAt    time.Time
	OwnerID      int64
	OwnerName    string
	ThumbnailURL string
	// Hidden marks entries the platform lists but no longer serves
	// (taken down or made private). Favorite listings include these.
	Hidden bool
	Raw    json.RawMessage
}

// VideoDetail is the full metadata fetched for a single video.
type VideoDetail struct {
	VideoInfo
	Description  string
	DurationSecs int
}

// ListMeta is the remote-side metadata of a listable source
// (favorite list title, collection title, creator name).
type ListMeta struct {
	ID    int64
	Title string
}

// envelope is the platform's uniform response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// wireVideo is the listing-endpoint item shape shared by all four variants.
// Endpoints differ in which timestamp field is authoritative; the caller
// picks via releaseAt().
type wireVideo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PubTime   int64  `json:"pubtime"`
	FavTime   int64  `json:"fav_time"`
	AddTime   int64  `json:"add_time"`
	Cover     string `json:"cover"`
	Attr      int    `json:"attr"`
	Raw       json.RawMessage
	OwnerID   int64  `json:"owner_mid"`
	OwnerName string `json:"owner_name"`
}

// releaseAt returns the authoritative release timestamp for the item.
// Favorite and watch-later entries order by when they were added to the
// list; submissions and collections order by publication time.
func (w *wireVideo) releaseAt() time.Time {
	switch {
	case w.FavTime > 0:
		return time.Unix(w.FavTime, 0)
	case w.AddTime > 0:
		return time.Unix(w.AddTime, 0)
	default:
		return time.Unix(w.PubTime, 0)
	}
}

func (w *wireVideo) toInfo(raw json.RawMessage) VideoInfo {
	return VideoInfo{
		ID:           w.ID,
		Title:        w.Title,
		ReleaseAt:    w.releaseAt(),
		OwnerID:      w.OwnerID,
		OwnerName:    w.OwnerName,
		ThumbnailURL: w.Cover,
		// attr != 0 marks invalid/hidden favorite entries
		Hidden: w.Attr != 0,
		Raw:    raw,
	}
}
