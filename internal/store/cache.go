package store

import "context"

// ReportCache persists resolved single-file reports. Keys derive only from
// the run handle, never from wall-clock time, so a second resolution of the
// same run hits the same object.
type ReportCache struct {
	Objects ObjectStore
	Prefix  string
}

// Key returns the deterministic cache key for a run handle.
func (c *ReportCache) Key(runHandle string) string {
	return c.Prefix + "/" + runHandle + ".html"
}

// Lookup returns the cached report URL for the run, if present.
func (c *ReportCache) Lookup(ctx context.Context, runHandle string) (string, bool, error) {
	key := c.Key(runHandle)
	ok, err := c.Objects.Exists(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return c.Objects.URL(key), true, nil
}

// Store writes the report under the run's cache key and returns its URL.
func (c *ReportCache) Store(ctx context.Context, runHandle string, report []byte) (string, error) {
	key := c.Key(runHandle)
	if err := c.Objects.Put(ctx, key, report, "text/html"); err != nil {
		return "", err
	}
	return c.Objects.URL(key), nil
}
