package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration, read from JSON or
// YAML. Durations accept strings such as "24h" or integer nanoseconds.
// Zero values leave the current setting untouched.
type FileConfig struct {
	HTTPAddr      string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr      string         `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN   string         `json:"database_dsn" yaml:"database_dsn"`
	RedisAddr     string         `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string         `json:"redis_password" yaml:"redis_password"`
	RedisDB       int            `json:"redis_db" yaml:"redis_db"`
	SessionTTL    timex.Duration `json:"session_ttl" yaml:"session_ttl"`

	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`
	FolderPath     string `json:"folder_path" yaml:"folder_path"`
	S3User         string `json:"s3_user" yaml:"s3_user"`
	S3Password     string `json:"s3_password" yaml:"s3_password"`
	S3Bucket       string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`

	RunWorkers        *bool          `json:"run_workers" yaml:"run_workers"`
	WorkerConcurrency int            `json:"worker_concurrency" yaml:"worker_concurrency"`
	JobMaxAttempts    int            `json:"job_max_attempts" yaml:"job_max_attempts"`
	JobBackoff        timex.Duration `json:"job_backoff" yaml:"job_backoff"`
	JobVisibility     timex.Duration `json:"job_visibility" yaml:"job_visibility"`

	MailFrom     string `json:"mail_from" yaml:"mail_from"`
	SMTPHost     string `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int    `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser     string `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string `json:"smtp_password" yaml:"smtp_password"`

	CORSOrigins    []string       `json:"cors_origins" yaml:"cors_origins"`
	HealthInterval timex.Duration `json:"health_interval" yaml:"health_interval"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays values from path. The format follows the extension:
// .yaml/.yml for YAML, anything else is JSON. An empty path loads nothing.
func parseFile(config *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = v.Duration
		}
	}

	setStr(&config.HTTPAddr, c.HTTPAddr)
	setStr(&config.GRPCAddr, c.GRPCAddr)
	setStr(&config.DatabaseDSN, c.DatabaseDSN)
	setStr(&config.RedisAddr, c.RedisAddr)
	setStr(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setDur(&config.SessionTTL, c.SessionTTL)

	setStr(&config.StorageBackend, c.StorageBackend)
	setStr(&config.FolderPath, c.FolderPath)
	setStr(&config.S3User, c.S3User)
	setStr(&config.S3Password, c.S3Password)
	setStr(&config.S3Bucket, c.S3Bucket)
	setStr(&config.S3Region, c.S3Region)
	setStr(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.RunWorkers != nil {
		config.RunWorkers = *c.RunWorkers
	}
	setInt(&config.WorkerConcurrency, c.WorkerConcurrency)
	setInt(&config.JobMaxAttempts, c.JobMaxAttempts)
	setDur(&config.JobBackoff, c.JobBackoff)
	setDur(&config.JobVisibility, c.JobVisibility)

	setStr(&config.MailFrom, c.MailFrom)
	setStr(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setStr(&config.SMTPUser, c.SMTPUser)
	setStr(&config.SMTPPassword, c.SMTPPassword)

	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	setDur(&config.HealthInterval, c.HealthInterval)
	setStr(&config.LogLevel, c.LogLevel)
}
