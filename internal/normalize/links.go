package normalize

import (
	"fmt"
	"regexp"

	"github.com/soyeahso/gork/internal/domain"
)

const (
	youTubePattern = `(https?://)?(www\.)?(youtube\.com|youtu\.be)/(watch\?v=|embed/|v/|shorts/)?([A-Za-z0-9_-]{11})`
	twitterPattern = `(https?://)?(www\.)?(twitter\.com|x\.com)/([A-Za-z0-9_]+)/status/(\d+)`
)

var (
	youTubeLink  = regexp.MustCompile(`(?i)` + youTubePattern)
	twitterLink  = regexp.MustCompile(`(?i)` + twitterPattern)
	embeddedLink = regexp.MustCompile(`(?i)` + youTubePattern + `|` + twitterPattern)
)

type linkKind int

const (
	linkUnknown linkKind = iota
	linkYouTube
	linkTwitter
)

func classify(url string) linkKind {
	switch {
	case url == "":
		return linkUnknown
	case youTubeLink.MatchString(url):
		return linkYouTube
	case twitterLink.MatchString(url):
		return linkTwitter
	default:
		return linkUnknown
	}
}

// videoID extracts the 11-character id from a YouTube link.
func videoID(url string) string {
	m := youTubeLink.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[5]
}

// videoIDs returns the distinct YouTube ids in text, in order of appearance.
func videoIDs(text string) []string {
	var ids []string
	seen := map[string]bool{}
	for _, m := range youTubeLink.FindAllStringSubmatch(text, -1) {
		if id := m[5]; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// summarizeEmbed renders a link preview as prompt text. Unknown embeds yield "".
func summarizeEmbed(e domain.Embed) string {
	author := e.Author
	if author == "" {
		author = "Unknown"
	}
	switch classify(e.URL) {
	case linkYouTube:
		title := e.Title
		if title == "" {
			title = "No Title"
		}
		return fmt.Sprintf("YouTube video by %s titled '%s'", author, title)
	case linkTwitter:
		desc := e.Description
		if desc == "" {
			desc = "No Description"
		}
		return fmt.Sprintf("Twitter post by %s with the contents: '%s'", author, desc)
	default:
		return ""
	}
}
