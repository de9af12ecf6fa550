package video

import (
	"fmt"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/log"
)

// CachingProber wraps a Prober with a per-path cache: a probe result is
// reused until the file's mtime changes, so re-probing a SourceVideo that
// nothing has touched is free.
type CachingProber struct {
	Prober
	cache *gocache.Cache
}

func NewCachingProber(p Prober) *CachingProber {
	return &CachingProber{
		Prober: p,
		cache:  gocache.New(24*time.Hour, time.Hour),
	}
}

type probeCacheEntry struct {
	modTime time.Time
	iv      InputVideo
}

// ProbeSource probes path (or returns the cached result if its mtime
// hasn't moved since the last probe) and assembles the admitted
// SourceVideo record from it.
func (c *CachingProber) ProbeSource(requestID, sourceID, path string) (SourceVideo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SourceVideo{}, errors.NewKindError(errors.KindUnreadableMedia,
			fmt.Sprintf("stat %s: %s", path, err))
	}

	if cached, ok := c.cache.Get(path); ok {
		entry := cached.(probeCacheEntry)
		if entry.modTime.Equal(info.ModTime()) {
			log.Log(requestID, "probe cache hit", "path", path)
			return FromProbe(sourceID, path, entry.iv)
		}
	}

	iv, err := c.ProbeFile(requestID, path)
	if err != nil {
		return SourceVideo{}, errors.NewKindError(errors.KindUnreadableMedia, err.Error())
	}

	c.cache.Set(path, probeCacheEntry{modTime: info.ModTime(), iv: iv}, gocache.DefaultExpiration)
	return FromProbe(sourceID, path, iv)
}
