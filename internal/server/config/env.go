package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays values from the environment. Variables in envFile are
// used when the process environment does not set them; a missing envFile
// is not an error.
func parseEnv(config *Config, envFile string) error {
	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", envFile, err)
		}
		if m != nil {
			dotenv = m
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	e := envReader{lookup: lookup}

	if port, ok := lookup("PORT"); ok && port != "" {
		config.HTTPAddr = ":" + port
	}
	e.str("HTTP_ADDR", &config.HTTPAddr)
	e.str("GRPC_ADDR", &config.GRPCAddr)
	e.str("DATABASE_DSN", &config.DatabaseDSN)
	e.str("REDIS_ADDR", &config.RedisAddr)
	e.str("REDIS_PASSWORD", &config.RedisPassword)
	e.integer("REDIS_DB", &config.RedisDB)
	e.duration("SESSION_TTL", &config.SessionTTL)

	e.str("STORAGE_BACKEND", &config.StorageBackend)
	e.str("FOLDER_PATH", &config.FolderPath)
	e.str("S3_USER", &config.S3User)
	e.str("S3_PASSWORD", &config.S3Password)
	e.str("S3_BUCKET", &config.S3Bucket)
	e.str("S3_REGION", &config.S3Region)
	e.str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	e.boolean("RUN_WORKERS", &config.RunWorkers)
	e.integer("WORKER_CONCURRENCY", &config.WorkerConcurrency)
	e.integer("JOB_MAX_ATTEMPTS", &config.JobMaxAttempts)
	e.duration("JOB_BACKOFF", &config.JobBackoff)
	e.duration("JOB_VISIBILITY", &config.JobVisibility)

	e.str("MAIL_FROM", &config.MailFrom)
	e.str("SMTP_HOST", &config.SMTPHost)
	e.integer("SMTP_PORT", &config.SMTPPort)
	e.str("SMTP_USER", &config.SMTPUser)
	e.str("SMTP_PASSWORD", &config.SMTPPassword)

	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		config.CORSOrigins = splitList(v)
	}
	e.duration("HEALTH_INTERVAL", &config.HealthInterval)
	e.str("LOG_LEVEL", &config.LogLevel)

	return e.err
}

type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("env %s: %w", key, err)
	}
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = d
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
