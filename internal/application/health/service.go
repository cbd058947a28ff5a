package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"epos-backend/internal/application/gate"
	"epos-backend/internal/infrastructure/planapi"
	"epos-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional for health check. If nil, database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// PlanAPIChecker is the plan generation API's health endpoint.
type PlanAPIChecker interface {
	Health(ctx context.Context) (*planapi.Health, error)
}

// Sources are the dependencies the health page reports on. Any may be nil.
type Sources struct {
	Redis   *redis.Client
	DB      DBPinger
	Backend *gate.Tracker
	PlanAPI PlanAPIChecker
}

// CollectResult is the payload of /health/json and the dashboard.
type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapInMB int `json:"heapInUseMb"`
}

type TrafficInfo struct {
	TotalRequests   int                     `json:"totalRequests"`
	SuccessCount    int                     `json:"successCount"`
	FailedCount     int                     `json:"failedCount"`
	SuccessRate     string                  `json:"successRate"`
	AvgResponseTime string                  `json:"avgResponseTime"`
	LastRequest     *middleware.LastRequest `json:"lastRequest"`
}

// DepStatus is one dependency row. PingMs is nil when the check failed.
type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
	Detail string `json:"detail,omitempty"`
}

const (
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
	statusError        = "error"
)

// CollectHealth gathers health data. The overall status is "ok" only when
// Redis and the database answer; the data backend and plan API are reported
// but do not fail the check.
func CollectHealth(ctx context.Context, src Sources) CollectResult {
	result := CollectResult{Dependencies: make(map[string]DepStatus)}

	db := DepStatus{Status: statusDisconnected}
	if src.DB != nil {
		db = timed(func() error { return src.DB.Ping() })
	}
	result.Dependencies["database"] = db

	startTime := time.Now()
	cache := DepStatus{Status: statusDisconnected}
	result.Traffic = TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	if src.Redis != nil {
		cache = timed(func() error { return src.Redis.Ping(ctx).Err() })
		if cache.Status == statusConnected {
			startTime = readTraffic(ctx, src.Redis, &result.Traffic, startTime)
		}
	}
	result.Dependencies["redis"] = cache

	backend := DepStatus{Status: string(src.Backend.Status())}
	result.Dependencies["dataBackend"] = backend

	if src.PlanAPI != nil {
		var model string
		dep := timed(func() error {
			h, err := src.PlanAPI.Health(ctx)
			if err == nil {
				model = h.Model
			}
			return err
		})
		if dep.Status == statusConnected {
			dep.Status = "reachable"
			dep.Detail = model
		} else {
			dep.Status = "unreachable"
		}
		result.Dependencies["planApi"] = dep
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := int64(time.Since(startTime).Seconds())
	if uptime < 0 {
		uptime = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc >> 20), HeapInMB: int(m.HeapInuse >> 20)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	if db.Status == statusConnected && cache.Status == statusConnected {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

func timed(check func() error) DepStatus {
	start := time.Now()
	if err := check(); err != nil {
		return DepStatus{Status: statusError}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: statusConnected, PingMs: &ms}
}

// readTraffic fills the counters written by middleware.HealthMarker and
// returns the recorded start time, seeding it on first use.
func readTraffic(ctx context.Context, rdb *redis.Client, t *TrafficInfo, fallback time.Time) time.Time {
	vals, err := rdb.MGet(ctx, middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq).Result()
	if err != nil {
		return fallback
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	t.TotalRequests, _ = strconv.Atoi(str(0))
	t.FailedCount, _ = strconv.Atoi(str(1))
	t.SuccessCount = t.TotalRequests - t.FailedCount
	if t.TotalRequests > 0 {
		t.SuccessRate = strconv.FormatFloat(float64(t.SuccessCount)/float64(t.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	if count, _ := strconv.Atoi(str(3)); count > 0 {
		t.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if s := str(5); s != "" {
		var last middleware.LastRequest
		if json.Unmarshal([]byte(s), &last) == nil {
			t.LastRequest = &last
		}
	}

	if ms, err := strconv.ParseInt(str(4), 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	rdb.Set(ctx, middleware.KeyStartTime, fallback.UnixMilli(), 0)
	return fallback
}

// ErrorLog returns up to the last middleware.ErrorLogSize 5xx entries, newest first.
func ErrorLog(ctx context.Context, rdb *redis.Client) ([]middleware.ErrorEntry, error) {
	raw, err := rdb.LRange(ctx, middleware.KeyErrorLog, 0, middleware.ErrorLogSize-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]middleware.ErrorEntry, 0, len(raw))
	for _, s := range raw {
		var e middleware.ErrorEntry
		if json.Unmarshal([]byte(s), &e) == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// Reset clears the traffic counters and restarts the uptime clock.
func Reset(ctx context.Context, rdb *redis.Client, now time.Time) error {
	pipe := rdb.TxPipeline()
	pipe.Del(ctx, middleware.HealthKeys...)
	pipe.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(now.UnixMilli(), 10), 0)
	_, err := pipe.Exec(ctx)
	return err
}
