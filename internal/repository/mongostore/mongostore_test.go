package mongostore

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskhub/internal/repository/repotest"
)

var testDB *mongo.Database

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
		log.Printf("docker unavailable, mongo tests will skip: %v", err)
		os.Exit(m.Run())
	}
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{Repository: "mongo", Tag: "7"}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start mongo: %v", err)
	}
	_ = resource.Expire(300)

	var client *mongo.Client
	uri := fmt.Sprintf("mongodb://localhost:%s", resource.GetPort("27017/tcp"))
	err = pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var err error
		client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		return client.Ping(ctx, nil)
	})
	if err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not connect to mongo: %v", err)
	}
	testDB = client.Database("taskhub_test")

	code := m.Run()

	_ = client.Disconnect(context.Background())
	_ = pool.Purge(resource)
	os.Exit(code)
}

func TestStore(t *testing.T) {
	if testDB == nil {
		t.Skip("mongo container not available")
	}
	s := New(testDB)
	if err := s.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	repotest.Run(t, s.Users(), s.Tasks())
}
