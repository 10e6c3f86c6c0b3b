package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/synthseries/internal/cache"
)

// CacheStore defines the cache operations exposed over HTTP
type CacheStore interface {
	GetStats() cache.GenerationCacheStats
	Clear(ctx context.Context) (int, error)
}

// CacheHandler handles cache monitoring endpoints
type CacheHandler struct {
	store  CacheStore
	logger *logrus.Logger
}

// NewCacheHandler creates a new cache handler. A nil store reports the cache
// as not configured.
func NewCacheHandler(store CacheStore, logger *logrus.Logger) *CacheHandler {
	return &CacheHandler{
		store:  store,
		logger: logger,
	}
}

// GetCacheStats returns hit/miss counters of the generation cache
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	if h.store == nil {
		h.notConfigured(c)
		return
	}

	stats := h.store.GetStats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"hits":     stats.Hits,
			"misses":   stats.Misses,
			"sets":     stats.Sets,
			"errors":   stats.Errors,
			"hit_rate": stats.HitRate(),
		},
	})
}

// ClearCache removes every cached generation
func (h *CacheHandler) ClearCache(c *gin.Context) {
	if h.store == nil {
		h.notConfigured(c)
		return
	}

	removed, err := h.store.Clear(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to clear generation cache")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to clear cache",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"removed": removed},
	})
}

func (h *CacheHandler) notConfigured(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"success": false,
		"error":   "Cache is not configured",
	})
}
