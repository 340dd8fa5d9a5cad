package platform

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/pkg/httpclient"
)

// newTestClient points a client at an httptest server with retries disabled
// so error-path tests do not sit in backoff loops.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := slog.New(slog.DiscardHandler)
	hc := httpclient.New(httpclient.Config{
		Timeout:          5 * time.Second,
		RetryAttempts:    0,
		CircuitThreshold: 100,
		CircuitTimeout:   time.Second,
		Logger:           log,
	})

	return NewClient(config.PlatformConfig{
		BaseURL:       server.URL,
		SessionCookie: "test-session",
	}, log).WithHTTPClient(hc)
}

func TestListFavoriteVideos(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/v3/fav/resource/list", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("media_id"))
		assert.Equal(t, "2", r.URL.Query().Get("pn"))
		assert.Equal(t, "20", r.URL.Query().Get("ps"))

		cookie, err := r.Cookie("session")
		require.NoError(t, err)
		assert.Equal(t, "test-session", cookie.Value)

		w.Write([]byte(`{"code":0,"message":"ok","data":{
			"medias":[
				{"id":"v100","title":"first","fav_time":1735732800,"owner_mid":9,"owner_name":"someone","cover":"http://img/1.jpg"},
				{"id":"v99","title":"hidden one","fav_time":1735646400,"attr":1}
			],
			"has_more":true
		}}`))
	})

	items, hasMore, err := client.ListFavoriteVideos(context.Background(), 42, 2)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, items, 2)

	assert.Equal(t, "v100", items[0].ID)
	assert.Equal(t, "first", items[0].Title)
	assert.Equal(t, int64(9), items[0].OwnerID)
	assert.Equal(t, "someone", items[0].OwnerName)
	assert.Equal(t, "http://img/1.jpg", items[0].ThumbnailURL)
	assert.True(t, items[0].ReleaseAt.Equal(time.Unix(1735732800, 0)))
	assert.False(t, items[0].Hidden)
	assert.NotEmpty(t, items[0].Raw)

	assert.True(t, items[1].Hidden)
}

func TestListFavoriteVideos_MalformedItemKeepsPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{
			"medias":[
				{"id":"v1","title":"good","fav_time":1735732800},
				{"title":"missing id"},
				"not even an object"
			],
			"has_more":false
		}}`))
	})

	items, hasMore, err := client.ListFavoriteVideos(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, items, 3)

	assert.Equal(t, "v1", items[0].ID)
	// Undecodable entries come back with an empty id and the raw payload
	// attached; the source layer turns them into item-level errors.
	assert.Empty(t, items[1].ID)
	assert.NotEmpty(t, items[1].Raw)
	assert.Empty(t, items[2].ID)
}

func TestEnvelopeErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantKind  ErrorKind
		wantFatal bool
	}{
		{"not logged in", -101, KindAuth, true},
		{"forbidden", -403, KindAuth, true},
		{"not found", -404, KindNotFound, true},
		{"rate limited", -412, KindRateLimited, false},
		{"unknown code", -500, KindTransient, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code":` + strconv.Itoa(tt.code) + `,"message":"nope"}`))
			})

			_, _, err := client.ListFavoriteVideos(context.Background(), 42, 1)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Equal(t, tt.wantFatal, IsFatal(err))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, KindAuth},
		{"forbidden", http.StatusForbidden, KindAuth},
		{"not found", http.StatusNotFound, KindNotFound},
		{"server error", http.StatusInternalServerError, KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.FavoriteMeta(context.Background(), 42)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
}

func TestMalformedEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`this is not json`))
	})

	_, err := client.FavoriteMeta(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
	assert.False(t, IsFatal(err))
}

func TestFavoriteMeta(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/v3/fav/folder/info", r.URL.Path)
		w.Write([]byte(`{"code":0,"data":{"id":42,"title":"holiday clips"}}`))
	})

	meta, err := client.FavoriteMeta(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), meta.ID)
	assert.Equal(t, "holiday clips", meta.Title)
}

func TestUserMeta(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/space/acc/info", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("mid"))
		w.Write([]byte(`{"code":0,"data":{"mid":7,"name":"a creator"}}`))
	})

	meta, err := client.UserMeta(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), meta.ID)
	assert.Equal(t, "a creator", meta.Title)
}

func TestVideoDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/web-interface/view", r.URL.Path)
		assert.Equal(t, "v1", r.URL.Query().Get("id"))
		w.Write([]byte(`{"code":0,"data":{
			"id":"v1","title":"a video","pubtime":1735732800,
			"owner_mid":9,"owner_name":"someone",
			"desc":"about things","duration":321
		}}`))
	})

	detail, err := client.VideoDetail(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", detail.ID)
	assert.Equal(t, "a video", detail.Title)
	assert.Equal(t, "about things", detail.Description)
	assert.Equal(t, 321, detail.DurationSecs)
	assert.True(t, detail.ReleaseAt.Equal(time.Unix(1735732800, 0)))
}

func TestPlayURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/player/playurl", r.URL.Path)
		w.Write([]byte(`{"code":0,"data":{"url":"http://media.example/v1.mp4"}}`))
	})

	u, err := client.PlayURL(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "http://media.example/v1.mp4", u)
}

func TestPlayURL_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{}}`))
	})

	_, err := client.PlayURL(context.Background(), "v1")
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
}

func TestKindOfUncategorized(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(assert.AnError))
	assert.False(t, IsFatal(assert.AnError))
}
