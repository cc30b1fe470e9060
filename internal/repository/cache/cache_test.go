package cache

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/internal/repository/memstore"
	"taskhub/internal/repository/repotest"
	"taskhub/pkg/crypto"
)

var redisClient *redis.Client

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		log.Printf("docker unavailable, redis tests will skip: %v", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{Repository: "redis", Tag: "7-alpine"}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start redis: %v", err)
	}
	_ = resource.Expire(300)

	err = pool.Retry(func() error {
		redisClient = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("localhost:%s", resource.GetPort("6379/tcp"))})
		return redisClient.Ping(context.Background()).Err()
	})
	if err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not connect to redis: %v", err)
	}

	code := m.Run()

	redisClient.Close()
	_ = pool.Purge(resource)
	os.Exit(code)
}

func newCache(t *testing.T) (*TaskCache, *memstore.Store) {
	t.Helper()
	if redisClient == nil {
		t.Skip("redis container not available")
	}
	sealer, err := crypto.NewSealer("cache-key")
	require.NoError(t, err)
	store := memstore.New()
	return NewTaskCache(store.Tasks(), redisClient, sealer, time.Minute), store
}

func TestCacheHonorsGatewayContract(t *testing.T) {
	c, store := newCache(t)
	repotest.Run(t, store.Users(), c)
}

func TestCacheStoresEncryptedAndScopesByOwner(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()

	owner := &models.User{Username: "cacheowner", Email: "cacheowner@example.com", Password: "x"}
	require.NoError(t, store.Users().Create(ctx, owner))

	task := &models.Task{Title: "cached", Description: "cached description", DueDate: time.Now().UTC(),
		Priority: models.PriorityMedium, Status: models.StatusTodo, CreatedBy: owner.ID}
	require.NoError(t, c.Create(ctx, task))

	raw, err := redisClient.Get(ctx, cacheKey(task.ID)).Result()
	require.NoError(t, err)
	assert.NotContains(t, raw, "cached description")

	got, err := c.FindOwned(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached", got.Title)

	_, err = c.FindOwned(ctx, task.ID, "someone-else")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = c.DeleteOwned(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), redisClient.Exists(ctx, cacheKey(task.ID)).Val())
}

func TestCacheDiscardsTamperedEntry(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()

	owner := &models.User{Username: "tamper", Email: "tamper@example.com", Password: "x"}
	require.NoError(t, store.Users().Create(ctx, owner))
	task := &models.Task{Title: "original", Description: "original description", DueDate: time.Now().UTC(),
		Priority: models.PriorityLow, Status: models.StatusTodo, CreatedBy: owner.ID}
	require.NoError(t, c.Create(ctx, task))

	require.NoError(t, redisClient.Set(ctx, cacheKey(task.ID), "garbage", time.Minute).Err())

	got, err := c.FindOwned(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)
}
