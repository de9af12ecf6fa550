package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v3"
)

// Cli holds the server-level flags: where to listen, where artifacts live,
// and the auth token. The per-job pipeline knobs live in Pipeline/FromEnv,
// since those are read fresh into every job's immutable config snapshot.
type Cli struct {
	HTTPAddr     string
	APIToken     string
	StorageRoot  string
	S3Bucket     string
	S3Region     string
	MaxJobsQueue int
}

// ParseCli parses server flags from argv and the environment (unprefixed,
// per section 6) using the same peterbourgon/ff flag set the rest of the
// pack reaches for instead of hand-rolling flag.Parse + os.Getenv calls.
func ParseCli(args []string) (Cli, error) {
	fs := flag.NewFlagSet("clipper-server", flag.ContinueOnError)

	cli := Cli{}
	fs.StringVar(&cli.HTTPAddr, "http-addr", "0.0.0.0:9090", "address to serve the HTTP API on")
	fs.StringVar(&cli.APIToken, "api-token", "", "bearer token required on every API request, empty disables auth")
	fs.StringVar(&cli.StorageRoot, "storage-root", "./data", "root directory for uploads/, outputs/ and metadata.json")
	fs.StringVar(&cli.S3Bucket, "s3-bucket", "", "optional S3 bucket to mirror rendered outputs into")
	fs.StringVar(&cli.S3Region, "s3-region", "us-east-1", "AWS region for the S3 mirror bucket")
	fs.IntVar(&cli.MaxJobsQueue, "max-jobs-queue", 32, "not read by the server; the coordinator's pending-job queue holds PROCESSING_CONCURRENCY jobs")

	if err := ff.Parse(fs, args, ff.WithEnvVarNoPrefix()); err != nil {
		return cli, fmt.Errorf("parsing flags: %w", err)
	}

	return cli, nil
}

// ParseCliFromOSArgs is the convenience entrypoint cmd/clipper-server calls.
func ParseCliFromOSArgs() (Cli, error) {
	return ParseCli(os.Args[1:])
}
