// Package config provides configuration structures and validation for the
// loyalty ledger services. It covers database connections, the Kafka request
// topic, worker pool sizing and the ledger generation policy.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	WorkerPool  WorkerPoolConfig
	Ledger      LedgerConfig
	Reconcile   ReconcileConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	RequestTopic      string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	DLQTopic          string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	// Transactions writes each generated ledger in a multi-document
	// transaction. Needs a replica set or sharded cluster.
	Transactions bool
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of customers processed concurrently
}

// LedgerConfig contains the synthetic activity policy for ledger generation
type LedgerConfig struct {
	RandomSeed      uint64 // 0 picks a random seed per run
	PremiumMin      int
	PremiumMax      int
	RegularMin      int
	RegularMax      int
	NewMin          int
	NewMax          int
	SyntheticWindow time.Duration
}

// ReconcileConfig contains settings for the periodic reconciliation sweep
type ReconcileConfig struct {
	Enabled  bool
	Interval time.Duration
}

// validate performs validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.RequestTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_LEDGER_REQUEST_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Ledger policy; tiers must be ordered premium >= regular >= new
	if c.Ledger.NewMin < 0 || c.Ledger.RegularMin < 0 || c.Ledger.PremiumMin < 0 {
		validationErrors = append(validationErrors, "LEDGER_*_MIN_ENTRIES must not be negative")
	}
	if c.Ledger.NewMax < c.Ledger.NewMin || c.Ledger.RegularMax < c.Ledger.RegularMin || c.Ledger.PremiumMax < c.Ledger.PremiumMin {
		validationErrors = append(validationErrors, "LEDGER_*_MAX_ENTRIES must not be below the matching minimum")
	}
	if c.Ledger.PremiumMin < c.Ledger.RegularMin || c.Ledger.RegularMin < c.Ledger.NewMin ||
		c.Ledger.PremiumMax < c.Ledger.RegularMax || c.Ledger.RegularMax < c.Ledger.NewMax {
		validationErrors = append(validationErrors, "LEDGER entry bounds must be ordered premium >= regular >= new")
	}
	if c.Ledger.SyntheticWindow <= 0 {
		validationErrors = append(validationErrors, "LEDGER_SYNTHETIC_WINDOW must be greater than 0")
	}

	if c.Reconcile.Enabled && c.Reconcile.Interval <= 0 {
		validationErrors = append(validationErrors, "RECONCILE_INTERVAL must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
