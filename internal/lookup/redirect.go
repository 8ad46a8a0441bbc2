package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// FollowRedirects walks the redirect chain of start with HEAD requests,
// at most maxHops hops, and returns the Location values seen. client must
// not follow redirects itself.
//
// A transport failure on the very first request is returned as an error;
// a later failure ends the walk with the hops collected so far.
func FollowRedirects(ctx context.Context, client *http.Client, start string, maxHops int) ([]string, error) {
	var hops []string
	current := start

	for i := 0; i < maxHops; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, current, nil)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			break
		}

		resp, err := client.Do(req)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("redirect probe failed: %w", err)
			}
			break
		}
		resp.Body.Close()

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			break
		}
		location := resp.Header.Get("Location")
		if location == "" {
			break
		}
		hops = append(hops, location)

		base, err := url.Parse(current)
		if err != nil {
			break
		}
		next, err := base.Parse(location)
		if err != nil {
			break
		}
		current = next.String()
	}

	return hops, nil
}
