package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLimit_UnderLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	svc := NewRateLimitService(db)

	mock.ExpectIncr("rate_limit:inquiry:203.0.113.7").SetVal(3)
	mock.ExpectExpire("rate_limit:inquiry:203.0.113.7", time.Minute).SetVal(true)

	allowed, retryAfter, err := svc.CheckLimit(context.Background(), "inquiry:203.0.113.7", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckLimit_OverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	svc := NewRateLimitService(db)

	mock.ExpectIncr("rate_limit:inquiry:203.0.113.7").SetVal(11)
	mock.ExpectExpire("rate_limit:inquiry:203.0.113.7", time.Minute).SetVal(true)
	mock.ExpectTTL("rate_limit:inquiry:203.0.113.7").SetVal(42 * time.Second)

	allowed, retryAfter, err := svc.CheckLimit(context.Background(), "inquiry:203.0.113.7", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 42*time.Second, retryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckLimit_ExactlyAtLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	svc := NewRateLimitService(db)

	mock.ExpectIncr("rate_limit:k").SetVal(10)
	mock.ExpectExpire("rate_limit:k", time.Minute).SetVal(true)

	allowed, _, err := svc.CheckLimit(context.Background(), "k", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "the limit-th request is still allowed")
}

func TestCheckLimit_RedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	svc := NewRateLimitService(db)

	mock.ExpectIncr("rate_limit:k").SetErr(errors.New("connection refused"))

	allowed, _, err := svc.CheckLimit(context.Background(), "k", 10, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}
