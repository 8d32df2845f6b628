package supabase

import (
	"net/url"
	"strings"
)

// StorageClient builds storage URLs.
type StorageClient struct {
	client *Client
}

func (c *Client) Storage() *StorageClient {
	return &StorageClient{client: c}
}

// PublicURL returns the public object URL for path in bucket. An absolute path
// is returned unchanged.
func (s *StorageClient) PublicURL(bucket, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.client.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
