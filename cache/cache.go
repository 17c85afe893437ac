// Package cache keeps large, immutable objects that several matches in one
// process share, such as parsed scenarios.
package cache

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/derby/config"
)

type cache struct {
	sync.Mutex
	objects map[string]any
}

// GlobalObjectCache is our global object cache, of course.
var GlobalObjectCache = &cache{objects: make(map[string]any)}

// Load returns the object stored under key, building it with loadFunc on
// first use. Concurrent callers for the same key wait for one build.
func Load[T any](cfg *config.Config, key string, loadFunc func(cfg *config.Config, key string) (T, error)) (T, error) {
	c := GlobalObjectCache
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[key]; ok {
		log.Debug().Str("key", key).Msg("getting-obj-from-cache")
		t, ok := obj.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("cache key %q holds a %T", key, obj)
		}
		return t, nil
	}
	log.Debug().Str("key", key).Msg("loading-into-cache")
	obj, err := loadFunc(cfg, key)
	if err != nil {
		return obj, err
	}
	c.objects[key] = obj
	return obj, nil
}

// Forget drops key from the cache.
func Forget(key string) {
	GlobalObjectCache.Lock()
	defer GlobalObjectCache.Unlock()
	delete(GlobalObjectCache.objects, key)
}
