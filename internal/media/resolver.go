package media

import "context"

// Resolver maps a directive keyword to a media URL. An empty URL with a
// nil error means the resolver has nothing for the keyword.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, keyword string) (string, error)
}

// Resolve picks one of the URLs tagged keyword uniformly at random.
func (t *TagIndex) Resolve(_ context.Context, keyword string) (string, error) {
	urls := t.Lookup(keyword)
	if len(urls) == 0 {
		return "", nil
	}
	return urls[t.pick(len(urls))], nil
}
