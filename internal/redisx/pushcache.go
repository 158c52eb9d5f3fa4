package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PushCache keeps remote order ids for supplier pushes that succeeded, so a
// retry after a crash between push and row insert does not re-push.
type PushCache struct {
	RDB *redis.Client
}

func (c *PushCache) Get(ctx context.Context, orderID, supplierID string) (string, error) {
	v, err := c.RDB.Get(ctx, fmt.Sprintf(KeyPushIdem, orderID, supplierID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (c *PushCache) Set(ctx context.Context, orderID, supplierID, remoteID string) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeyPushIdem, orderID, supplierID), remoteID, TTLPushIdem).Err()
}
