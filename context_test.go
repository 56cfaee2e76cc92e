package drip

import (
	"context"
	"testing"
	"time"

	"github.com/drip-pay/drip/driptest/assert"
)

func TestBlockTime(t *testing.T) {
	now := time.Now()
	ctx := WithBlockTime(context.Background(), now)

	got, err := BlockTime(ctx)
	assert.Nil(t, err)
	assert.Equal(t, now, got)

	if _, err := BlockTime(context.Background()); err == nil {
		t.Fatal("want an error when no time is bound to the context")
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	ctx := WithBlockTime(context.Background(), now)

	assert.Equal(t, true, IsExpired(ctx, AsUnixTime(now.Add(-time.Minute))))
	assert.Equal(t, false, IsExpired(ctx, AsUnixTime(now.Add(time.Minute))))

	// Expiration is inclusive.
	assert.Equal(t, true, IsExpired(ctx, AsUnixTime(now)))
}

func TestIsExpiredRequiresBlockTime(t *testing.T) {
	assert.Panics(t, func() {
		IsExpired(context.Background(), AsUnixTime(time.Now()))
	})
}

func TestInThePastAndFuture(t *testing.T) {
	now := time.Now()
	ctx := WithBlockTime(context.Background(), now)

	assert.Equal(t, true, InThePast(ctx, now.Add(-time.Second)))
	assert.Equal(t, false, InThePast(ctx, now))
	assert.Equal(t, true, InTheFuture(ctx, now.Add(time.Second)))
	assert.Equal(t, false, InTheFuture(ctx, now))
}
