package innertube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scgreenhalgh/tubeexplode/client"
)

const playerResponseFixture = `{
	"playabilityStatus": {"status": "OK"},
	"videoDetails": {
		"videoId": "dQw4w9WgXcQ",
		"title": "Test Video",
		"author": "Test Channel",
		"lengthSeconds": "212",
		"viewCount": "1000000",
		"shortDescription": "A test."
	},
	"streamingData": {
		"formats": [
			{"itag": 18, "url": "https://cdn.example.com/18", "mimeType": "video/mp4", "qualityLabel": "360p", "bitrate": 500000, "contentLength": "1048576"}
		],
		"adaptiveFormats": [
			{"itag": 137, "signatureCipher": "s=ENCRYPTED&sp=sig&url=https%3A%2F%2Fcdn.example.com%2F137", "mimeType": "video/mp4", "qualityLabel": "1080p", "bitrate": 4000000}
		]
	},
	"captions": {
		"playerCaptionsTracklistRenderer": {
			"captionTracks": [
				{"baseUrl": "https://cdn.example.com/timedtext", "languageCode": "en", "name": {"simpleText": "English"}, "kind": "asr"}
			]
		}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(client.New()).WithBaseURL(srv.URL)
}

func TestGetPlayerResponse(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/youtubei/v1/player"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(playerResponseFixture))
	})
	c.WithSignatureTimestamp("19834")

	pr, err := c.GetPlayerResponse(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", pr.VideoID)
	assert.Equal(t, "Test Video", pr.Title)
	assert.Equal(t, "Test Channel", pr.Author)
	assert.Equal(t, 212, pr.Duration)
	assert.EqualValues(t, 1000000, pr.ViewCount)
	assert.Equal(t, "OK", pr.Status)

	require.Len(t, pr.Formats, 2)
	assert.Equal(t, 18, pr.Formats[0].Itag)
	assert.Equal(t, "https://cdn.example.com/18", pr.Formats[0].URL)
	assert.EqualValues(t, 1048576, pr.Formats[0].Size)
	assert.Equal(t, 137, pr.Formats[1].Itag)
	assert.Empty(t, pr.Formats[1].URL)
	assert.Contains(t, pr.Formats[1].SignatureCipher, "s=ENCRYPTED")

	require.Len(t, pr.CaptionTracks, 1)
	assert.Equal(t, "en", pr.CaptionTracks[0].LanguageCode)
	assert.Equal(t, "asr", pr.CaptionTracks[0].Kind)

	// The signature timestamp must ride along in the playback context.
	pc := gotBody["playbackContext"].(map[string]any)["contentPlaybackContext"].(map[string]any)
	assert.Equal(t, "19834", pc["signatureTimestamp"])
	assert.Equal(t, "dQw4w9WgXcQ", gotBody["videoId"])
}

func TestGetPlayerResponseBadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	_, err := c.GetPlayerResponse(context.Background(), "x")
	assert.Error(t, err)
}

func playlistPage(videos []string, continuation string) string {
	entries := make([]string, 0, len(videos)+1)
	for _, id := range videos {
		entries = append(entries,
			`{"playlistVideoRenderer":{"videoId":"`+id+`","title":{"runs":[{"text":"Title `+id+`"}]}}}`)
	}
	if continuation != "" {
		entries = append(entries,
			`{"continuationItemRenderer":{"continuationEndpoint":{"continuationCommand":{"token":"`+continuation+`"}}}}`)
	}
	list := strings.Join(entries, ",")
	return `{"contents":{"twoColumnBrowseResultsRenderer":{"tabs":[{"tabRenderer":{"content":{"sectionListRenderer":{"contents":[{"itemSectionRenderer":{"contents":[{"playlistVideoListRenderer":{"contents":[` + list + `]}}]}}]}}}}]}}}`
}

func continuationPage(videos []string) string {
	entries := make([]string, 0, len(videos))
	for _, id := range videos {
		entries = append(entries,
			`{"playlistVideoRenderer":{"videoId":"`+id+`","title":{"runs":[{"text":"Title `+id+`"}]}}}`)
	}
	return `{"onResponseReceivedActions":[{"appendContinuationItemsAction":{"continuationItems":[` +
		strings.Join(entries, ",") + `]}}]}`
}

func TestGetPlaylistItemsFollowsContinuations(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		if calls == 1 {
			assert.Contains(t, string(body), `"browseId":"VLPLtest"`)
			_, _ = w.Write([]byte(playlistPage([]string{"vid1", "vid2"}, "CONT_TOKEN")))
			return
		}
		assert.Contains(t, string(body), `"continuation":"CONT_TOKEN"`)
		_, _ = w.Write([]byte(continuationPage([]string{"vid3"})))
	})

	items, err := c.GetPlaylistItems(context.Background(), "PLtest", 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "vid1", items[0].VideoID)
	assert.Equal(t, 1, items[0].Index)
	assert.Equal(t, "vid3", items[2].VideoID)
	assert.Equal(t, 3, items[2].Index)
	assert.Equal(t, 2, calls)
}

func TestGetPlaylistItemsHonorsLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(playlistPage([]string{"a", "b", "c"}, "MORE")))
	})
	items, err := c.GetPlaylistItems(context.Background(), "PLtest", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSearch(t *testing.T) {
	fixture := `{"contents":{"twoColumnSearchResultsRenderer":{"primaryContents":{"sectionListRenderer":{"contents":[{"itemSectionRenderer":{"contents":[
		{"videoRenderer":{"videoId":"abc","title":{"runs":[{"text":"First"}]},"ownerText":{"runs":[{"text":"Chan"}]}}},
		{"adRenderer":{}},
		{"videoRenderer":{"videoId":"def","title":{"runs":[{"text":"Second"}]},"ownerText":{"runs":[{"text":"Chan"}]}}}
	]}}]}}}}}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/youtubei/v1/search"))
		_, _ = w.Write([]byte(fixture))
	})

	results, err := c.Search(context.Background(), "test", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "abc", results[0].VideoID)
	assert.Equal(t, "First", results[0].Title)
	assert.Equal(t, "Chan", results[0].Author)
	assert.Equal(t, "def", results[1].VideoID)
}
