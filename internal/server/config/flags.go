package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/filesmanager/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-d", "-r", "-s", "-f", "-n", "-l", "-workers"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-g string   gRPC health bind address
//	-d string   PostgreSQL DSN
//	-r string   Redis address
//	-s string   storage backend: local or s3
//	-f string   folder of the local storage backend
//	-n int      number of concurrent job consumers per queue
//	-l string   log level
//	-workers    also run the job consumers inside the server process
//
// args are filtered with flagx.FilterArgs first, so flags owned by other
// components (-c/-config) pass through untouched.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.StorageBackend, "s", config.StorageBackend, "storage backend (local|s3)")
	fs.StringVar(&config.FolderPath, "f", config.FolderPath, "local storage folder")
	fs.IntVar(&config.WorkerConcurrency, "n", config.WorkerConcurrency, "job consumers per queue")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.RunWorkers, "workers", config.RunWorkers, "run job consumers in-process")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
