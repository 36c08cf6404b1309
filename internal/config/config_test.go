package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "config*.env")
	if err != nil {
		t.Fatalf("Failed to create temporary config file: %v", err)
	}
	defer tempFile.Close()

	if _, err := tempFile.WriteString(data); err != nil {
		t.Fatalf("Failed to write test configuration to temporary file: %v", err)
	}

	return tempFile.Name()
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
PORT=8080
ENVIRONMENT=development
VERSION=1.0.0
LOG_LEVEL=debug
TRUSTED_ORIGINS="http://localhost:3000,http://localhost:3001"
STORE_DRIVER=mongo
POSTGRES_HOST=localhost
POSTGRES_USER=testuser
POSTGRES_PASSWORD=testpassword
POSTGRES_DB=testdb
MONGO_URI=mongodb://mongo:27017
MONGO_DB=blogs
JWT_SECRET=s3cret
JWT_TTL=30m
LIMITER_RPS=5.5
LIMITER_ENABLED=false
MAIL_HOST=smtp.example.com
MAIL_PORT=587
MAIL_USER=testuser@example.com
MAIL_PASSWORD=testpassword
MAIL_SENDER=sender@example.com
RABBITMQ_HOST=rabbitmq.example.com
RABBITMQ_USER=testuser
RABBITMQ_PASSWORD=testpassword
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", config.Port)
	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "1.0.0", config.Version)
	assert.Equal(t, slog.LevelDebug, config.SlogLevel())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, config.TrustedOrigins)
	assert.Equal(t, DriverMongo, config.StoreDriver)
	assert.Equal(t, "localhost", config.DBHost)
	assert.Equal(t, "5432", config.DBPort)
	assert.Equal(t, "testuser", config.DBUser)
	assert.Equal(t, "testpassword", config.DBPassword)
	assert.Equal(t, "testdb", config.DBName)
	assert.Equal(t, 15*time.Minute, config.DBMaxIdleTime)
	assert.Equal(t, "mongodb://mongo:27017", config.MongoURI)
	assert.Equal(t, "blogs", config.MongoDB)
	assert.Equal(t, "s3cret", config.JWTSecret)
	assert.Equal(t, "bloglist", config.JWTIssuer)
	assert.Equal(t, 30*time.Minute, config.JWTTTL)
	assert.Equal(t, 5.5, config.LimiterRPS)
	assert.Equal(t, 4, config.LimiterBurst)
	assert.False(t, config.LimiterEnabled)
	assert.Equal(t, "smtp.example.com", config.MailHost)
	assert.Equal(t, 587, config.MailPort)
	assert.Equal(t, "testuser@example.com", config.MailUser)
	assert.Equal(t, "testpassword", config.MailPassword)
	assert.Equal(t, "sender@example.com", config.MailSender)
	assert.Equal(t, "rabbitmq.example.com", config.MQHost)
	assert.Equal(t, "5672", config.MQPort)
	assert.Equal(t, "testuser", config.MQUser)
	assert.Equal(t, "testpassword", config.MQPassword)
	assert.True(t, config.BrokerEnabled())
	assert.True(t, config.MailEnabled())
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, "JWT_SECRET=s3cret\n"))
	require.NoError(t, err)

	assert.Equal(t, "4000", config.Port)
	assert.Equal(t, DriverPostgres, config.StoreDriver)
	assert.Equal(t, []string{}, config.TrustedOrigins)
	assert.Equal(t, time.Hour, config.JWTTTL)
	assert.Equal(t, slog.LevelInfo, config.SlogLevel())
	assert.True(t, config.LimiterEnabled)
	assert.False(t, config.BrokerEnabled())
	assert.False(t, config.MailEnabled())
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("PORT", "9090")

	config, err := Load(writeConfig(t, "PORT=8080\n"))
	require.NoError(t, err)
	assert.Equal(t, "9090", config.Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "STORE_DRIVER=sqlite\n"))
	assert.Error(t, err)

	_, err = Load("/does/not/exist.env")
	assert.Error(t, err)
}
