package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard-service/internal/infrastructure/config"
)

func TestFactory_CreateCache(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		memory  bool
	}{
		{name: "memory", cfg: Config{Type: CacheTypeMemory}, memory: true},
		{name: "empty defaults to memory", cfg: Config{}, memory: true},
		{name: "unsupported", cfg: Config{Type: "memcached"}, wantErr: ErrUnsupportedBackend},
	}

	f := NewFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := f.CreateCache(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			if tt.memory {
				assert.IsType(t, &MemoryCache{}, c)
			}
		})
	}
}

func TestFactory_RedisUnreachable(t *testing.T) {
	start := time.Now()
	_, err := NewFactory().CreateCache(Config{Type: CacheTypeRedis, RedisURL: "127.0.0.1:1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis at 127.0.0.1:1")
	assert.Less(t, time.Since(start), pingTimeout+time.Second)
}

func TestConfigFromLayout(t *testing.T) {
	cfg := ConfigFromLayout(config.LayoutConfig{
		Backend: "redis",
		Redis:   config.RedisConfig{Addr: "redis:6379", Password: "secret", DB: 2},
	})

	assert.Equal(t, Config{Type: CacheTypeRedis, RedisURL: "redis:6379", RedisDB: 2, Password: "secret"}, cfg)
}
