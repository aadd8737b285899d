package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"route-tracker/internal/models"
)

const lastFixKey = "tracker:last_fix"

// RedisMapView publishes the latest fix so a map frontend can follow the
// recording. Publication is best-effort: an unconfigured or unreachable
// Redis never fails the session.
type RedisMapView struct {
	client *redis.Client
}

// NewRedisMapView returns a no-op view when addr is empty.
func NewRedisMapView(addr string) *RedisMapView {
	if addr == "" {
		return &RedisMapView{}
	}
	return &RedisMapView{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Recenter stores the fix and zoom span under the well-known key and
// publishes it for live subscribers.
func (v *RedisMapView) Recenter(p models.GeoPoint, zoomSpanDegrees float64) {
	if v == nil || v.client == nil {
		return
	}
	payload, err := json.Marshal(map[string]float64{
		"latitude":  p.Latitude,
		"longitude": p.Longitude,
		"zoomSpan":  zoomSpanDegrees,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := v.client.Set(ctx, lastFixKey, payload, 10*time.Minute).Err(); err != nil {
		log.Printf("Map view: publish fix failed: %v", err)
		return
	}
	if err := v.client.Publish(ctx, lastFixKey, payload).Err(); err != nil {
		log.Printf("Map view: notify subscribers failed: %v", err)
	}
}
