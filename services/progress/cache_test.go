package progress

import "testing"

func TestCacheEvictsOldestBeyondCapacity(t *testing.T) {
	c := newProgressCache(3)

	c.put("u1", "a", "", CachedProgress{Percent: 10})
	c.put("u1", "b", "", CachedProgress{Percent: 20})
	c.put("u1", "c", "", CachedProgress{Percent: 30})
	c.put("u1", "d", "", CachedProgress{Percent: 40})

	if _, ok := c.get("u1", "a", ""); ok {
		t.Fatal("expected oldest entry evicted")
	}
	for _, movie := range []string{"b", "c", "d"} {
		if _, ok := c.get("u1", movie, ""); !ok {
			t.Fatalf("expected entry for %s to survive", movie)
		}
	}
}

func TestCacheEvictMovieDropsAllEpisodes(t *testing.T) {
	c := newProgressCache(16)

	c.put("u1", "show", "", CachedProgress{Percent: 10})
	c.put("u1", "show", "s1e1", CachedProgress{Percent: 20})
	c.put("u1", "show", "s1e2", CachedProgress{Percent: 30})
	c.put("u1", "other", "", CachedProgress{Percent: 40})
	c.put("u2", "show", "", CachedProgress{Percent: 50})

	c.evictMovie("u1", "show")

	for _, ep := range []string{"", "s1e1", "s1e2"} {
		if _, ok := c.get("u1", "show", ep); ok {
			t.Fatalf("expected u1/show/%q evicted", ep)
		}
	}
	if _, ok := c.get("u1", "other", ""); !ok {
		t.Fatal("unrelated movie entry must survive")
	}
	if _, ok := c.get("u2", "show", ""); !ok {
		t.Fatal("other user's entry must survive")
	}
}
