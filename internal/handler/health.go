package handler

import (
	"context"
	"net/http"
	"time"

	"mypostelma/internal/infra"
	"mypostelma/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports DB and Redis connectivity, the storage breaker state and
// the dead-letter backlog. Never exposes credentials or internals.
// rdb and breaker may be nil.
func Health(db *gorm.DB, rdb *redis.Client, breaker *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		dlq := gin.H{}
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			} else {
				for _, q := range []string{worker.QueueClosureReport, worker.QueueEmail} {
					if n, err := worker.DLQLength(ctx, rdb, q); err == nil {
						dlq[q] = n
					}
				}
			}
		}

		breakerState := "none"
		if breaker != nil {
			breakerState = breaker.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus == "error" || breakerState == infra.CBOpen.String() {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":              status == http.StatusOK,
			"db":              dbStatus,
			"redis":           redisStatus,
			"storage_breaker": breakerState,
			"dead_letters":    dlq,
		})
	}
}
