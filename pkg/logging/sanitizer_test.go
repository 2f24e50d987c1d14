package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "api key query parameter",
			in:   "https://api.themoviedb.org/3/movie/603?api_key=abcdef0123456789&language=en-US",
			want: "https://api.themoviedb.org/3/movie/603?api_key=" + RedactedText + "&language=en-US",
		},
		{
			name: "webhook token path",
			in:   "/webhook/plex/tok_9f8e7d6c5b4a",
			want: "/webhook/plex/" + RedactedText,
		},
		{
			name: "nothing sensitive",
			in:   "https://api.trakt.tv/users/alice/watched/movies",
			want: "https://api.trakt.tv/users/alice/watched/movies",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeURL(tt.in))
		})
	}
}

func TestSanitizeError(t *testing.T) {
	err := errors.New(`request failed: GET https://api.themoviedb.org/3/tv/42?api_key=0123456789abcdef0123: 401`)
	got := SanitizeError(err)
	assert.NotContains(t, got, "0123456789abcdef0123")
	assert.Contains(t, got, RedactedText)

	assert.Equal(t, "", SanitizeError(nil))

	dbErr := errors.New("failed to connect: postgres://mediakeep:hunter2@db:5432/mediakeep_engine")
	got = SanitizeError(dbErr)
	assert.NotContains(t, got, "hunter2")
}

func TestMaskCredential(t *testing.T) {
	assert.Equal(t, "abcd...wxyz", MaskCredential("abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, RedactedText, MaskCredential("short"))
	assert.Equal(t, RedactedText, MaskCredential(""))
}
