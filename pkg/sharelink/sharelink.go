package sharelink

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidLink marks a share URL that no known permalink shape matches.
var ErrInvalidLink = errors.New("invalid share link")

const PlatformFacebook = "facebook"

// Post identifies a social post extracted from a share link.
type Post struct {
	Platform string
	ID       string
}

var facebookHosts = map[string]struct{}{
	"facebook.com":        {},
	"www.facebook.com":    {},
	"m.facebook.com":      {},
	"web.facebook.com":    {},
	"mbasic.facebook.com": {},
	"fb.com":              {},
	"www.fb.com":          {},
}

var (
	rePostPath  = regexp.MustCompile(`^/[^/]+/posts/([A-Za-z0-9]+)`)
	reVideoPath = regexp.MustCompile(`^/[^/]+/(?:videos|reel)/([A-Za-z0-9]+)`)
)

// Ordered extraction patterns for known Facebook permalink shapes. The first
// pattern yielding a non-empty identifier wins; later matches are ignored.
var facebookPatterns = []func(u *url.URL) string{
	// direct post path: /{user}/posts/{id}
	func(u *url.URL) string {
		if m := rePostPath.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}
		return ""
	},
	// permalink form: /permalink.php?story_fbid={id}&id={page}
	func(u *url.URL) string {
		if strings.HasPrefix(u.Path, "/permalink.php") {
			return u.Query().Get("story_fbid")
		}
		return ""
	},
	// mobile story form: /story.php?story_fbid={id}
	func(u *url.URL) string {
		if strings.HasPrefix(u.Path, "/story.php") {
			return u.Query().Get("story_fbid")
		}
		return ""
	},
	// media/video path: /{user}/videos/{id}, /{user}/reel/{id}, /watch?v={id}
	func(u *url.URL) string {
		if m := reVideoPath.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}
		if strings.HasPrefix(u.Path, "/watch") {
			return u.Query().Get("v")
		}
		return ""
	},
	// photo by id: /photo.php?fbid={id}
	func(u *url.URL) string {
		if strings.HasPrefix(u.Path, "/photo.php") {
			return u.Query().Get("fbid")
		}
		return ""
	},
}

// Parse extracts the canonical post identifier from a social share URL.
// It is pure and performs no I/O.
func Parse(raw string) (Post, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Post{}, fmt.Errorf("%w: not a parseable URL", ErrInvalidLink)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return Post{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLink, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if _, ok := facebookHosts[host]; !ok {
		return Post{}, fmt.Errorf("%w: unrecognized host %q", ErrInvalidLink, host)
	}

	for _, extract := range facebookPatterns {
		if id := extract(u); id != "" {
			return Post{Platform: PlatformFacebook, ID: id}, nil
		}
	}

	return Post{}, fmt.Errorf("%w: no known permalink shape in %q", ErrInvalidLink, u.Path)
}
