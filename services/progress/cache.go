package progress

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const cacheCapacity = 512

// CachedProgress is the slim per-key state kept for instant UI paint
// without a store round trip.
type CachedProgress struct {
	CurrentTime float64
	Percent     int
}

type progressCache struct {
	entries *lru.Cache[string, CachedProgress]
}

func newProgressCache(capacity int) *progressCache {
	if capacity <= 0 {
		capacity = cacheCapacity
	}
	entries, _ := lru.New[string, CachedProgress](capacity)
	return &progressCache{entries: entries}
}

func cacheKey(userID, movieID, episodeID string) string {
	return userID + "|" + movieID + "|" + episodeID
}

func (c *progressCache) get(userID, movieID, episodeID string) (CachedProgress, bool) {
	return c.entries.Get(cacheKey(userID, movieID, episodeID))
}

func (c *progressCache) put(userID, movieID, episodeID string, p CachedProgress) {
	c.entries.Add(cacheKey(userID, movieID, episodeID), p)
}

func (c *progressCache) evict(userID, movieID, episodeID string) {
	c.entries.Remove(cacheKey(userID, movieID, episodeID))
}

// evictMovie drops every cached entry a user holds for a movie,
// episode-level entries included.
func (c *progressCache) evictMovie(userID, movieID string) {
	prefix := userID + "|" + movieID + "|"
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
}
