package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskhub/configs"
)

func TestPostgresDSN(t *testing.T) {
	cfg := configs.Config{DBHost: "db", DBPort: 5433, DBUser: "app", DBPassword: "pw", DBName: "tasks"}
	assert.Equal(t, "host=db port=5433 user=app password=pw dbname=tasks sslmode=disable", PostgresDSN(cfg))
}
