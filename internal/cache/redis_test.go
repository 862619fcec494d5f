package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"flight-time-engine/internal/engine"
	"flight-time-engine/internal/model"
)

func TestSummaryKey(t *testing.T) {
	asOf := time.Date(2024, 3, 31, 17, 0, 0, 0, time.UTC)
	assert.Equal(t, "cache:utilization:long_haul:2024-03-31:4-00ff", SummaryKey(model.FleetLongHaul, asOf, "4-00ff"))
}

func TestUnreachableServerReturnsError(t *testing.T) {
	c := New(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	}), time.Minute)
	defer c.Close()

	ctx := context.Background()
	res, err := c.GetSummary(ctx, model.FleetShortHaul, time.Now(), "x")
	assert.Error(t, err)
	assert.Nil(t, res)

	assert.Error(t, c.SetSummary(ctx, "x", engine.LogbookResult{Fleet: model.FleetShortHaul}))
	assert.Error(t, c.Ping(ctx))
}
