package config

import (
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestConnectRedis_Disabled(t *testing.T) {
	ResetRedisClientForTest()
	t.Setenv("APPENV", "production")
	t.Setenv("REDIS_ENABLED", "false")

	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_SkippedInTestEnv(t *testing.T) {
	ResetRedisClientForTest()
	t.Setenv("APPENV", "test")
	t.Setenv("REDIS_ENABLED", "true")

	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_InvalidAddress(t *testing.T) {
	ResetRedisClientForTest()
	t.Setenv("APPENV", "production")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")

	rdb, err := ConnectRedis()
	assert.Error(t, err)
	assert.Nil(t, rdb)
	assert.Nil(t, GetRedisClient())
}

func TestConnectRedis_ReturnsInjectedClient(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	SetRedisClientForTest(rdb)
	t.Cleanup(ResetRedisClientForTest)
	t.Setenv("APPENV", "production")
	t.Setenv("REDIS_ENABLED", "true")

	got, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Same(t, rdb, got)
}

func TestRedisTestHelpers_SetAndReset(t *testing.T) {
	rdb, _ := redismock.NewClientMock()

	SetRedisClientForTest(rdb)
	assert.Same(t, rdb, GetRedisClient())

	ResetRedisClientForTest()
	assert.Nil(t, GetRedisClient())
}

func TestConnectRedis_ConcurrentCalls(t *testing.T) {
	ResetRedisClientForTest()
	t.Setenv("APPENV", "production")
	t.Setenv("REDIS_ENABLED", "false")

	type callResult struct {
		rdb interface{}
		err error
	}
	done := make(chan callResult, 5)
	for i := 0; i < 5; i++ {
		go func() {
			rdb, err := ConnectRedis()
			done <- callResult{rdb: rdb, err: err}
		}()
	}

	for i := 0; i < 5; i++ {
		res := <-done
		assert.NoError(t, res.err)
		assert.Nil(t, res.rdb)
	}
}
