package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSong_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		shape CallbackShape
		title string
	}{
		{
			name:  "data list",
			body:  `{"data":[{"audio_url":"http://x/a.mp3","title":"T","duration":42}]}`,
			shape: ShapeDataList,
			title: "T",
		},
		{
			name:  "provider envelope",
			body:  `{"code":200,"msg":"ok","data":{"callbackType":"complete","task_id":"t1","data":[{"audio_url":"http://x/a.mp3","title":"T"}]}}`,
			shape: ShapeNestedList,
			title: "T",
		},
		{
			name:  "bare list",
			body:  `[{"audio_url":"http://x/a.mp3","title":"T"}]`,
			shape: ShapeBareList,
			title: "T",
		},
		{
			name:  "bare song",
			body:  `{"audio_url":"http://x/a.mp3","title":"T"}`,
			shape: ShapeBareSong,
			title: "T",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			song, shape := ExtractSong([]byte(tt.body))
			assert.Equal(t, tt.shape, shape)
			require.NotNil(t, song)
			assert.Equal(t, "http://x/a.mp3", song.AudioURL)
			assert.Equal(t, tt.title, song.Title)
		})
	}
}

func TestExtractSong_FirstSongWins(t *testing.T) {
	body := `{"data":[{"audio_url":"http://x/1.mp3","title":"one"},{"audio_url":"http://x/2.mp3","title":"two"}]}`
	song, _ := ExtractSong([]byte(body))
	require.NotNil(t, song)
	assert.Equal(t, "one", song.Title)
}

func TestExtractSong_LenientFields(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		duration float64
		id       string
	}{
		{"string duration", `{"data":[{"audio_url":"http://x/a.mp3","duration":"42.5"}]}`, 42.5, ""},
		{"garbage duration", `{"data":[{"audio_url":"http://x/a.mp3","duration":{"s":1}}]}`, 0, ""},
		{"numeric id", `[{"id":7,"audio_url":"http://x/a.mp3","title":null}]`, 0, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			song, _ := ExtractSong([]byte(tt.body))
			require.NotNil(t, song)
			assert.Equal(t, "http://x/a.mp3", song.AudioURL)
			assert.Equal(t, tt.duration, song.Duration)
			assert.Equal(t, tt.id, song.ID)
		})
	}

	n := NotificationFromCallback("S1", []byte(`{"data":[{"audio_url":"http://x/a.mp3","duration":"42"}]}`), time.Now())
	assert.Equal(t, NotificationMusicComplete, n.Type)
}

func TestExtractSong_NothingUsable(t *testing.T) {
	for _, body := range []string{``, `null`, `"text"`, `{}`, `{"data":[]}`, `[]`, `{"data":[{"title":"no audio"}]}`, `not json`} {
		song, _ := ExtractSong([]byte(body))
		assert.Nil(t, song, body)
	}
}

func TestNotificationFromCallback(t *testing.T) {
	now := time.Unix(1700000000, 0)

	n := NotificationFromCallback("S1", []byte(`{"data":[{"audio_url":"http://x/a.mp3","title":"T","duration":42}]}`), now)
	assert.Equal(t, NotificationMusicComplete, n.Type)
	require.NotNil(t, n.Song)
	assert.Equal(t, "http://x/a.mp3", n.Song.AudioURL)
	assert.Equal(t, "T", n.Song.Title)
	assert.Equal(t, float64(42), n.Song.Duration)
	assert.Equal(t, now.UnixMilli(), n.Timestamp)
	assert.True(t, n.WellFormed())
	assert.True(t, n.Terminal())

	empty := NotificationFromCallback("S1", []byte(`{"data":[]}`), now)
	assert.Equal(t, NotificationMusicEmpty, empty.Type)
	assert.Nil(t, empty.Song)
	assert.True(t, empty.WellFormed())

	garbage := NotificationFromCallback("S1", []byte(`<html>oops`), now)
	assert.Equal(t, NotificationMusicEmpty, garbage.Type)
	assert.JSONEq(t, `"<html>oops"`, string(garbage.Data))

	for _, body := range []string{`null`, ` null `, ``} {
		marker := NotificationFromCallback("S1", []byte(body), now)
		assert.Equal(t, NotificationMusicEmpty, marker.Type, body)
		assert.True(t, marker.WellFormed(), body)
	}

	progress := NotificationFromCallback("S1", []byte(`{"code":200,"data":{"callbackType":"first","task_id":"t9","data":[]}}`), now)
	assert.Equal(t, NotificationMusicProgress, progress.Type)
	assert.Equal(t, "t9", progress.TaskID)
	assert.False(t, progress.Terminal())

	failed := NotificationFromCallback("S1", []byte(`{"code":531,"msg":"generation failed","data":{"task_id":"t9"}}`), now)
	assert.Equal(t, NotificationMusicFailed, failed.Type)
	assert.Equal(t, "generation failed", failed.Message)
}

func TestSongFilename(t *testing.T) {
	assert.Equal(t, "Night_Rain_.mp3", (&Song{Title: "Night Rain!"}).Filename())
	assert.Equal(t, "generated-music.mp3", (&Song{}).Filename())
}
