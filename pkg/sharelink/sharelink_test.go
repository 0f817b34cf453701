package sharelink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePostPath(t *testing.T) {
	post, err := Parse("https://www.facebook.com/user/posts/123456")
	require.NoError(t, err)
	require.Equal(t, PlatformFacebook, post.Platform)
	require.Equal(t, "123456", post.ID)
}

func TestParsePermalink(t *testing.T) {
	post, err := Parse("https://www.facebook.com/permalink.php?story_fbid=555&id=1")
	require.NoError(t, err)
	require.Equal(t, "555", post.ID)
}

func TestParseMobileStory(t *testing.T) {
	post, err := Parse("https://m.facebook.com/story.php?story_fbid=777&id=42")
	require.NoError(t, err)
	require.Equal(t, "777", post.ID)
}

func TestParseVideoPath(t *testing.T) {
	post, err := Parse("https://www.facebook.com/somepage/videos/998877")
	require.NoError(t, err)
	require.Equal(t, "998877", post.ID)
}

func TestParseWatch(t *testing.T) {
	post, err := Parse("https://www.facebook.com/watch/?v=445566")
	require.NoError(t, err)
	require.Equal(t, "445566", post.ID)
}

func TestParsePhoto(t *testing.T) {
	post, err := Parse("https://www.facebook.com/photo.php?fbid=112233")
	require.NoError(t, err)
	require.Equal(t, "112233", post.ID)
}

func TestParseFirstPatternWins(t *testing.T) {
	// a posts path that also carries a story_fbid query must resolve via the
	// path pattern, not the query one
	post, err := Parse("https://www.facebook.com/user/posts/111?story_fbid=222")
	require.NoError(t, err)
	require.Equal(t, "111", post.ID)
}

func TestParseRejectsForeignHost(t *testing.T) {
	_, err := Parse("https://twitter.com/user/status/123456")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidLink))
}

func TestParseRejectsUnknownShape(t *testing.T) {
	_, err := Parse("https://www.facebook.com/groups/12345/about")
	require.True(t, errors.Is(err, ErrInvalidLink))
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"not a url",
		"://missing-scheme",
		"ftp://facebook.com/user/posts/1",
		"https:///posts/1",
	} {
		_, err := Parse(raw)
		require.Error(t, err, "input %q", raw)
		require.True(t, errors.Is(err, ErrInvalidLink), "input %q", raw)
	}
}

func FuzzParse(f *testing.F) {
	f.Add("https://www.facebook.com/user/posts/123456")
	f.Add("https://www.facebook.com/permalink.php?story_fbid=555&id=1")
	f.Add("http://m.facebook.com/story.php?story_fbid=%%%")
	f.Add("garbage\x00input")
	f.Fuzz(func(t *testing.T, raw string) {
		post, err := Parse(raw)
		if err == nil && post.ID == "" {
			t.Fatalf("parse succeeded with empty post id for %q", raw)
		}
	})
}
