/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"gopkg.in/yaml.v3"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Backend identifiers accepted by the pool and adapters.
const (
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendSQLite   = "sqlite"
)

// ConnectionParameters describes how to reach one database. Implementations
// are value types and immutable once a pool has been created from them: the
// pool registry keys on PoolKey, so two parameter values that serialize
// identically share one pool.
type ConnectionParameters interface {
	// Backend returns the backend identifier.
	Backend() string
	// PoolKey returns the canonical serialization used as the pool registry key.
	PoolKey() string
	// Open creates the shared connection pool and its Bun handle.
	Open() (*sql.DB, *bun.DB, error)
}

// PostgresParameters configures the server backend.
type PostgresParameters struct {
	ServerAddress              string
	DatabaseName               string
	User                       string
	Password                   string
	PortNumber                 int
	SSLMode                    string
	MaximumNumberOfConnections int
	ConnectionTimeout          time.Duration
}

func (p PostgresParameters) Backend() string { return BackendPostgres }

func (p PostgresParameters) port() int {
	if p.PortNumber > 0 {
		return p.PortNumber
	}
	return 5432
}

func (p PostgresParameters) sslMode() string {
	if p.SSLMode != "" {
		return p.SSLMode
	}
	return "disable"
}

func (p PostgresParameters) connectTimeout() time.Duration {
	if p.ConnectionTimeout > 0 {
		return p.ConnectionTimeout
	}
	return 30 * time.Second
}

func (p PostgresParameters) PoolKey() string {
	return fmt.Sprintf("postgres|%s|%d|%s|%s|%s|%s|%d|%s",
		p.ServerAddress, p.port(), p.DatabaseName, p.User, p.Password,
		p.sslMode(), p.MaximumNumberOfConnections, p.connectTimeout())
}

func (p PostgresParameters) Open() (*sql.DB, *bun.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		p.User,
		p.Password,
		p.ServerAddress,
		p.port(),
		p.DatabaseName,
		p.sslMode(),
		int(p.connectTimeout().Seconds()),
	)
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	if p.MaximumNumberOfConnections > 0 {
		sqlDB.SetMaxOpenConns(p.MaximumNumberOfConnections)
	}
	return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
}

// MySQLParameters configures the second server backend.
type MySQLParameters struct {
	ServerAddress              string
	DatabaseName               string
	User                       string
	Password                   string
	PortNumber                 int
	Charset                    string
	MaximumNumberOfConnections int
	ConnectionTimeout          time.Duration
}

func (p MySQLParameters) Backend() string { return BackendMySQL }

func (p MySQLParameters) port() int {
	if p.PortNumber > 0 {
		return p.PortNumber
	}
	return 3306
}

func (p MySQLParameters) charset() string {
	if p.Charset != "" {
		return p.Charset
	}
	return "utf8mb4"
}

func (p MySQLParameters) connectTimeout() time.Duration {
	if p.ConnectionTimeout > 0 {
		return p.ConnectionTimeout
	}
	return 30 * time.Second
}

func (p MySQLParameters) PoolKey() string {
	return fmt.Sprintf("mysql|%s|%d|%s|%s|%s|%s|%d|%s",
		p.ServerAddress, p.port(), p.DatabaseName, p.User, p.Password,
		p.charset(), p.MaximumNumberOfConnections, p.connectTimeout())
}

func (p MySQLParameters) Open() (*sql.DB, *bun.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local&timeout=%s",
		p.User,
		p.Password,
		p.ServerAddress,
		p.port(),
		p.DatabaseName,
		p.charset(),
		p.connectTimeout(),
	)
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	if p.MaximumNumberOfConnections > 0 {
		sqlDB.SetMaxOpenConns(p.MaximumNumberOfConnections)
	}
	return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
}

// SQLiteParameters configures the embedded backend.
type SQLiteParameters struct {
	DatabaseFile string
}

func (p SQLiteParameters) Backend() string { return BackendSQLite }

func (p SQLiteParameters) PoolKey() string {
	return fmt.Sprintf("sqlite|%s", p.DatabaseFile)
}

func (p SQLiteParameters) Open() (*sql.DB, *bun.DB, error) {
	sqlDB, err := sql.Open(sqliteshim.ShimName, p.DatabaseFile)
	if err != nil {
		return nil, nil, err
	}
	// The embedded backend serializes writers; one physical connection keeps
	// transaction state and last_insert_rowid() on the same handle.
	sqlDB.SetMaxOpenConns(1)
	return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// ConnectionConfig is the YAML-friendly connection section. It converts into
// backend-specific ConnectionParameters via Parameters.
type ConnectionConfig struct {
	Type             string        `yaml:"type"` // postgres, mysql, sqlite
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	DBName           string        `yaml:"dbname"`
	SSLMode          string        `yaml:"sslmode"`
	Charset          string        `yaml:"charset"`
	DatabaseFile     string        `yaml:"database_file"`
	MaxOpenConns     int           `yaml:"max_open_conns"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
	EnableQueryLog   bool          `yaml:"enable_query_log"`
	SlowQueryTime    time.Duration `yaml:"slow_query_time"`
}

// Config aggregates the settings consumed by the database core.
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxOpenConns:   100,
		ConnectTimeout: time.Second * 30,
		EnableQueryLog: false,
		SlowQueryTime:  time.Second * 2,
	}
}

// LoadConfig reads a YAML configuration file and applies environment variable
// overrides on top of it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{Connection: *DefaultConnectionConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Connection.overrideFromEnv()
	return cfg, nil
}

// overrideFromEnv overrides sensitive configuration from environment variables.
func (c *ConnectionConfig) overrideFromEnv() {
	if host := os.Getenv("DB_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if username := os.Getenv("DB_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		c.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		c.SSLMode = sslmode
	}
	if file := os.Getenv("DB_FILE"); file != "" {
		c.DatabaseFile = file
	}
	if maxOpen := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpen != "" {
		if val, err := strconv.Atoi(maxOpen); err == nil {
			c.MaxOpenConns = val
		}
	}
	if enableQueryLog := os.Getenv("DB_ENABLE_QUERY_LOG"); enableQueryLog != "" {
		c.EnableQueryLog = enableQueryLog == "true"
	}
}

// Parameters converts the configuration into backend-specific connection
// parameters.
func (c *ConnectionConfig) Parameters() (ConnectionParameters, error) {
	switch c.Type {
	case BackendPostgres, "postgresql":
		return PostgresParameters{
			ServerAddress:              c.Host,
			DatabaseName:               c.DBName,
			User:                       c.Username,
			Password:                   c.Password,
			PortNumber:                 c.Port,
			SSLMode:                    c.SSLMode,
			MaximumNumberOfConnections: c.MaxOpenConns,
			ConnectionTimeout:          c.ConnectTimeout,
		}, nil
	case BackendMySQL:
		return MySQLParameters{
			ServerAddress:              c.Host,
			DatabaseName:               c.DBName,
			User:                       c.Username,
			Password:                   c.Password,
			PortNumber:                 c.Port,
			Charset:                    c.Charset,
			MaximumNumberOfConnections: c.MaxOpenConns,
			ConnectionTimeout:          c.ConnectTimeout,
		}, nil
	case BackendSQLite, "sqlite3":
		file := c.DatabaseFile
		if file == "" {
			file = fmt.Sprintf("%s.db", c.DBName)
		}
		return SQLiteParameters{DatabaseFile: file}, nil
	default:
		return nil, NewDatabaseError("unsupported database type: %s, supported types: [postgres mysql sqlite]", c.Type)
	}
}
