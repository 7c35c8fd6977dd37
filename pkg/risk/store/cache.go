package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maternia-ai/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

// VerdictCache keeps the latest verdict per patient in Redis so the
// dashboard's polling reads never touch Postgres.
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewVerdictCache(client *redis.Client, ttl time.Duration) *VerdictCache {
	return &VerdictCache{client: client, ttl: ttl}
}

func verdictKey(patientID string) string {
	return fmt.Sprintf("risk:latest:%s", patientID)
}

func (c *VerdictCache) Set(ctx context.Context, patientID string, verdict models.Verdict) error {
	data, err := json.Marshal(verdict)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, verdictKey(patientID), data, c.ttl).Err()
}

// Get returns the cached verdict, or (nil, nil) on a cache miss.
func (c *VerdictCache) Get(ctx context.Context, patientID string) (*models.Verdict, error) {
	data, err := c.client.Get(ctx, verdictKey(patientID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var verdict models.Verdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}
