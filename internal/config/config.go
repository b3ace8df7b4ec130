// Package config centralizes the flag/env-driven settings shared by the
// pipeline's binaries, following the reference tool's flag.*Var-plus-env-
// default convention.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// Config holds the ingest pipeline's runtime configuration.
type Config struct {
	// Upstream session (§4.3)
	Addr      string
	Username  string
	Password  string
	Contracts []string

	// Local storage
	CaptureDir    string
	StateDir      string
	ArchiveDir    string

	// Checkpoint cross-host mirror (opt-in: only active when set)
	MongoURI string

	// Monitor HTTP/WS surface (§4.12)
	MonitorHost       string
	MonitorPort       int
	StreamBufferSize  int

	// Archiver (§4.11, opt-in S3 upload: only active when S3Bucket is set)
	S3Bucket             string
	S3Region             string
	S3Prefix             string
	ArchiveMaxGB         int
	ArchiveIntervalHours int
	ArchiveAfterHours    int

	// Synthetic generator (genfeed, §4.13)
	Seed int64
}

// Load parses flags (with env-var defaults) into a Config.
func Load() *Config {
	c := &Config{}

	flag.StringVar(&c.Addr, "addr", envStr("CEDRO_ADDR", "datafeed1.cedrotech.com:81"), "Cedro datafeed TCP address")
	flag.StringVar(&c.Username, "user", envStr("CEDRO_USER", ""), "Cedro account username")
	flag.StringVar(&c.Password, "pass", envStr("CEDRO_PASS", ""), "Cedro account password")
	contracts := flag.String("contracts", envStr("CEDRO_CONTRACTS", "WINQ26,WDOQ26"), "comma-separated contracts to subscribe")

	flag.StringVar(&c.CaptureDir, "capture-dir", envStr("CAPTURE_DIR", "./data/capture"), "directory for per-class capture files")
	flag.StringVar(&c.StateDir, "state-dir", envStr("STATE_DIR", "./data/state"), "directory for tailer checkpoint offsets")
	flag.StringVar(&c.ArchiveDir, "archive-dir", envStr("ARCHIVE_DIR", "./data/archive"), "directory for gzipped archived capture files")

	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", ""), "MongoDB URI for the checkpoint mirror (empty = disabled)")

	flag.StringVar(&c.MonitorHost, "monitor-host", envStr("MONITOR_HOST", "0.0.0.0"), "monitor HTTP/WS listen host")
	flag.IntVar(&c.MonitorPort, "monitor-port", envInt("MONITOR_PORT", 8100), "monitor HTTP/WS listen port")
	flag.IntVar(&c.StreamBufferSize, "stream-buffer", envInt("STREAM_BUFFER", 256), "per-client /stream send buffer size")

	flag.StringVar(&c.S3Bucket, "s3-bucket", envStr("S3_BUCKET", ""), "S3 bucket for archive upload (empty = disabled)")
	flag.StringVar(&c.S3Region, "s3-region", envStr("S3_REGION", "us-east-1"), "AWS region for S3")
	flag.StringVar(&c.S3Prefix, "s3-prefix", envStr("S3_PREFIX", "cedrofeed"), "S3 key prefix for archived capture files")
	flag.IntVar(&c.ArchiveMaxGB, "archive-max-gb", envInt("ARCHIVE_MAX_GB", 50), "local archive directory size cap in GB")
	flag.IntVar(&c.ArchiveIntervalHours, "archive-interval", envInt("ARCHIVE_INTERVAL_HOURS", 6), "hours between archive sweeps")
	flag.IntVar(&c.ArchiveAfterHours, "archive-after", envInt("ARCHIVE_AFTER_HOURS", 24), "archive capture files older than this many hours")

	flag.Int64Var(&c.Seed, "seed", envInt64("FEED_SEED", 0), "PRNG seed (0 = random, genfeed only)")

	flag.Parse()

	c.Contracts = splitCSV(*contracts)
	return c
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
