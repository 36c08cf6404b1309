package common

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
)

func skipShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
}

func TestRabbitMQ(t *testing.T) string {
	skipShort(t)
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12.11-management-alpine", rabbitmq.WithAdminUsername("guest"), rabbitmq.WithAdminPassword("guest"))
	if err != nil {
		t.Fatalf("could not start rabbitmq container: %v", err)
	}

	connURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("could not get rabbitmq connection URL: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("could not terminate container: %v", err)
		}
	})

	return connURL
}

// TestDB starts a Postgres container and applies the embedded migrations.
func TestDB(t *testing.T) *sql.DB {
	skipShort(t)
	ctx := context.Background()

	c, err := postgres.Run(ctx,
		"docker.io/postgres:14.11-bookworm",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)))
	if err != nil {
		t.Fatalf("could not start postgres container: %v", err)
	}

	connURL, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	db, err := connectDB(connURL, 10, 5, time.Minute)
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}

	m, err := MigrateDB(db)
	if err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = m.Drop()
		_ = db.Close()
		_ = c.Terminate(ctx)
	})

	return db
}

// TestMongo starts a MongoDB container and returns a database with indexes in place.
func TestMongo(t *testing.T) *mongo.Database {
	skipShort(t)
	ctx := context.Background()

	c, err := mongodb.Run(ctx, "mongo:6")
	if err != nil {
		t.Fatalf("could not start mongodb container: %v", err)
	}

	uri, err := c.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	client, db, err := NewMongoDB(ctx, uri, "testdb")
	if err != nil {
		t.Fatalf("could not connect to mongodb: %v", err)
	}

	t.Cleanup(func() {
		_ = CloseMongo(client)
		_ = c.Terminate(ctx)
	})

	return db
}
