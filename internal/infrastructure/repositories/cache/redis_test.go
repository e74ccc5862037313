package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRedisClient is a testify mock of the redis commands the cache uses
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	cmd := redis.NewStringCmd(ctx, "get", key)
	if args.Error(1) != nil {
		cmd.SetErr(args.Error(1))
	} else {
		cmd.SetVal(args.String(0))
	}
	return cmd
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	if args.Error(0) != nil {
		cmd.SetErr(args.Error(0))
	} else {
		cmd.SetVal("OK")
	}
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	cmd := redis.NewIntCmd(ctx, "del")
	if args.Error(1) != nil {
		cmd.SetErr(args.Error(1))
	} else {
		cmd.SetVal(int64(args.Int(0)))
	}
	return cmd
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	args := m.Called(ctx)
	cmd := redis.NewStatusCmd(ctx, "ping")
	if args.Error(0) != nil {
		cmd.SetErr(args.Error(0))
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	return m.Called().Error(0)
}

func TestNewRedisCache(t *testing.T) {
	c := NewRedisCache("localhost:6379", "", 0)
	require.NotNil(t, c)
	assert.NoError(t, c.Close())
}

func TestRedisCache_Get(t *testing.T) {
	tests := []struct {
		name    string
		val     string
		err     error
		want    string
		wantErr error
	}{
		{name: "hit", val: `{"data":[]}`, want: `{"data":[]}`},
		{name: "miss maps to ErrKeyNotFound", err: redis.Nil, wantErr: ErrKeyNotFound},
		{name: "connection error passes through", err: errors.New("connection refused"), wantErr: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockRedisClient{}
			client.On("Get", mock.Anything, "finboard_widgets").Return(tt.val, tt.err)
			c := NewRedisCacheWithClient(client)

			got, err := c.Get(context.Background(), "finboard_widgets")
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			case errors.Is(tt.wantErr, ErrKeyNotFound):
				assert.ErrorIs(t, err, ErrKeyNotFound)
			default:
				assert.EqualError(t, err, tt.wantErr.Error())
			}
			client.AssertExpectations(t)
		})
	}
}

func TestRedisCache_Set(t *testing.T) {
	client := &MockRedisClient{}
	client.On("Set", mock.Anything, "finboard_settings", "payload", 24*time.Hour).Return(nil).Once()
	client.On("Set", mock.Anything, "broken", "payload", time.Duration(0)).Return(errors.New("READONLY")).Once()
	c := NewRedisCacheWithClient(client)

	assert.NoError(t, c.Set(context.Background(), "finboard_settings", "payload", 24*time.Hour))
	assert.EqualError(t, c.Set(context.Background(), "broken", "payload", 0), "READONLY")
	client.AssertExpectations(t)
}

func TestRedisCache_Delete(t *testing.T) {
	client := &MockRedisClient{}
	client.On("Del", mock.Anything, []string{"finboard_widgets"}).Return(1, nil)
	c := NewRedisCacheWithClient(client)

	assert.NoError(t, c.Delete(context.Background(), "finboard_widgets"))
	client.AssertExpectations(t)
}

func TestRedisCache_PingAndClose(t *testing.T) {
	client := &MockRedisClient{}
	client.On("Ping", mock.Anything).Return(nil)
	client.On("Close").Return(nil)
	c := NewRedisCacheWithClient(client)

	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
	client.AssertExpectations(t)
}
