package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coocood/freecache"
)

// responseCache keeps encoded JSON responses of the query endpoints. Every write to the
// store clears it, so entries only expire by TTL when nothing is ingested.
type responseCache struct {
	cache *freecache.Cache
	ttl   int
}

func newResponseCache(sizeMB int, ttl time.Duration) *responseCache {
	return &responseCache{
		cache: freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:   int(ttl.Seconds()),
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	body, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return body, true
}

func (c *responseCache) set(key string, body []byte) {
	// Oversized entries are simply not cached.
	_ = c.cache.Set([]byte(key), body, c.ttl)
}

func (c *responseCache) clear() {
	c.cache.Clear()
}

// errBadRequest marks query errors that map to 400 instead of 500.
var errBadRequest = errors.New("bad request")

// cachedJSON serves the cached response for r's URL, or computes, caches and writes it.
func (s *Server) cachedJSON(w http.ResponseWriter, r *http.Request, compute func() (any, error)) {
	key := r.URL.RequestURI()
	if s.cache != nil {
		if body, ok := s.cache.get(key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
	}

	v, err := compute()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errBadRequest) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	body = append(body, '\n')
	if s.cache != nil {
		s.cache.set(key, body)
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// invalidate drops every cached response after the store changed.
func (s *Server) invalidate() {
	if s.cache != nil {
		s.cache.clear()
	}
}
