package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-concord/internal/ports"
)

// rateLimit rejects requests with 429 once the token bucket is empty. A nil
// limiter disables the check.
func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow() {
			retry := 1
			if l := float64(limiter.Limit()); l > 0 && l < 1 {
				retry = int(math.Ceil(1 / l))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			status, body := classify(fmt.Errorf("%w: try again later", ports.ErrRateLimited))
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Next()
	}
}

// bodyLimit caps the request body at n bytes.
func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// requestLogger writes one structured entry per request.
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"duration":  time.Since(start),
			"client_ip": c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request handled")
		case status >= http.StatusBadRequest:
			entry.Warn("request handled")
		default:
			entry.Info("request handled")
		}
	}
}
