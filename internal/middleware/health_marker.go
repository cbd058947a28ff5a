package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for the request counters shown on the health dashboard.
const (
	KeyReqTotal  = "health:epos:req_total"
	KeyReqErrors = "health:epos:req_errors"
	KeyResTime   = "health:epos:res_time_total"
	KeyResCount  = "health:epos:res_count"
	KeyStartTime = "health:epos:start_time"
	KeyLastReq   = "health:epos:last_request"
	KeyErrorLog  = "health:epos:error_log"

	// ErrorLogSize is how many 5xx entries the error log keeps.
	ErrorLogSize = 50
)

// HealthKeys lists every key the marker writes; the reset endpoint clears them.
var HealthKeys = []string{KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog}

// LastRequest is the most recent tracked request.
type LastRequest struct {
	Time   time.Time `json:"time"`
	IP     string    `json:"ip"`
	Path   string    `json:"path"`
	Method string    `json:"method"`
}

// ErrorEntry is one line of the 5xx error log.
type ErrorEntry struct {
	Time    time.Time `json:"time"`
	Method  string    `json:"method"`
	Path    string    `json:"path"`
	Status  int       `json:"status"`
	Message string    `json:"message"`
	TraceID string    `json:"trace_id,omitempty"`
}

// HealthMarker records request stats in Redis. The dashboard, its JSON,
// /metrics and favicon requests are not counted.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || path == "/reset" || strings.HasPrefix(path, "/health") ||
			strings.HasPrefix(path, "/metrics") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		last, _ := json.Marshal(LastRequest{Time: start, IP: c.IP(), Path: c.OriginalURL(), Method: c.Method()})
		ctx := context.Background()
		pipe := rdb.Pipeline()
		pipe.Set(ctx, KeyLastReq, last, 0)
		pipe.Incr(ctx, KeyReqTotal)
		_, _ = pipe.Exec(ctx)

		err := c.Next()

		status := responseStatus(c, err)
		pipe = rdb.Pipeline()
		pipe.Incr(ctx, KeyResCount)
		pipe.IncrByFloat(ctx, KeyResTime, float64(time.Since(start).Milliseconds()))
		if status >= fiber.StatusInternalServerError {
			msg := "Internal Server Error"
			if err != nil {
				msg = err.Error()
			}
			entry, _ := json.Marshal(ErrorEntry{
				Time:    time.Now(),
				Method:  c.Method(),
				Path:    c.OriginalURL(),
				Status:  status,
				Message: msg,
				TraceID: GetTraceID(c),
			})
			pipe.Incr(ctx, KeyReqErrors)
			pipe.LPush(ctx, KeyErrorLog, entry)
			pipe.LTrim(ctx, KeyErrorLog, 0, ErrorLogSize-1)
		}
		_, _ = pipe.Exec(ctx)
		return err
	}
}
