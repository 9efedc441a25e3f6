// Package linkinfo looks up metadata for links shared in chat.
package linkinfo

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/soyeahso/gork/internal/normalize"
)

// maxIDsPerCall is the videos.list page limit.
const maxIDsPerCall = 50

// YouTube resolves video titles through the YouTube Data API.
type YouTube struct {
	svc *youtube.Service
}

// NewYouTube creates a lookup client authenticated with an API key.
// Extra options (endpoint, HTTP client) are appended after the key.
func NewYouTube(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTube, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTube{svc: svc}, nil
}

// Videos implements normalize.TitleLookup. Unknown ids are absent from the result.
func (y *YouTube) Videos(ctx context.Context, ids []string) (map[string]normalize.VideoInfo, error) {
	out := make(map[string]normalize.VideoInfo, len(ids))
	for start := 0; start < len(ids); start += maxIDsPerCall {
		end := min(start+maxIDsPerCall, len(ids))
		resp, err := y.svc.Videos.List([]string{"snippet"}).Id(ids[start:end]...).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list videos: %w", err)
		}
		for _, item := range resp.Items {
			if item.Snippet == nil {
				continue
			}
			out[item.Id] = normalize.VideoInfo{
				Title:   item.Snippet.Title,
				Channel: item.Snippet.ChannelTitle,
			}
		}
	}
	return out, nil
}
