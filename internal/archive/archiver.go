// Package archive periodically gzips aged-out capture files into a local
// archive tree and, when configured, uploads them to S3, enforcing a
// local size cap by deleting the oldest archives first.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/gustavoferreira/cedrofeed/internal/wire"
)

// captureFileRE matches one day's capture file: "<ymd>_<class>.txt" or
// "<ymd>_raw_data.txt", produced by internal/capture's Demultiplexer.
var captureFileRE = regexp.MustCompile(`^(\d{8})_([A-Za-z_]+)\.txt$`)

// Uploader uploads archived bytes to an object store; S3Uploader is the
// production implementation, swappable in tests.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

// Archiver sweeps captureDir for day-rolled-over capture files older than
// maxAge, gzips each into archiveDir/<class>/<ymd>.txt.gz, optionally
// uploads it, and deletes the oldest archives once the archive tree
// exceeds maxBytes. A best-effort Mongo cursor mirrors the last-archived
// cutoff for fleet-wide observability; the local archive tree's own
// listing is always authoritative (the same file-is-primary pattern as
// the checkpoint store).
type Archiver struct {
	captureDir string
	archiveDir string
	maxBytes   int64
	interval   time.Duration
	maxAge     time.Duration

	uploader Uploader
	cursorDB *mongo.Database
}

// New creates an Archiver. cursorDB may be nil to skip the cursor mirror;
// uploader may be nil to skip remote upload.
func New(captureDir, archiveDir string, maxGB, intervalHours, afterHours int, uploader Uploader, cursorDB *mongo.Database) *Archiver {
	return &Archiver{
		captureDir: captureDir,
		archiveDir: archiveDir,
		maxBytes:   int64(maxGB) * 1 << 30,
		interval:   time.Duration(intervalHours) * time.Hour,
		maxAge:     time.Duration(afterHours) * time.Hour,
		uploader:   uploader,
		cursorDB:   cursorDB,
	}
}

// Run starts the periodic archive loop. Blocks until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) {
	log.Printf("archiver: capture-dir=%s archive-dir=%s max=%dGB interval=%v age=%v",
		a.captureDir, a.archiveDir, a.maxBytes>>30, a.interval, a.maxAge)

	a.cycle(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.cycle(ctx)
		}
	}
}

func (a *Archiver) cycle(ctx context.Context) {
	files, err := a.ageOutCandidates()
	if err != nil {
		log.Printf("archiver: scan %s: %v", a.captureDir, err)
		return
	}

	var cutoff time.Time
	for _, f := range files {
		if err := a.archiveOne(ctx, f); err != nil {
			log.Printf("archiver: archive %s: %v", f.path, err)
			continue
		}
		if f.day.After(cutoff) {
			cutoff = f.day
		}
		log.Printf("archiver: archived %s -> %s/%s/%s.txt.gz", f.path, a.archiveDir, f.class, f.ymd)
	}

	if !cutoff.IsZero() {
		a.saveCursor(ctx, cutoff)
	}
	a.rotate()
}

type captureFile struct {
	path  string
	ymd   string
	class string
	day   time.Time
}

// ageOutCandidates lists capture files under captureDir whose YMD is old
// enough to archive, skipping the currently-active day's files (the
// demultiplexer still has them open for append).
func (a *Archiver) ageOutCandidates() ([]captureFile, error) {
	entries, err := os.ReadDir(a.captureDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cutoff := time.Now().Add(-a.maxAge)
	var out []captureFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := captureFileRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		day, err := time.ParseInLocation("20060102", m[1], wire.SaoPaulo)
		if err != nil {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}
		out = append(out, captureFile{
			path:  filepath.Join(a.captureDir, e.Name()),
			ymd:   m[1],
			class: strings.ToLower(m[2]),
			day:   day,
		})
	}
	return out, nil
}

func (a *Archiver) archiveOne(ctx context.Context, f captureFile) error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		gz.Close()
		return fmt.Errorf("gzip: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}

	destDir := filepath.Join(a.archiveDir, f.class)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	destPath := filepath.Join(destDir, f.ymd+".txt.gz")
	if err := os.WriteFile(destPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	if a.uploader != nil {
		key := fmt.Sprintf("%s/%s.txt.gz", f.class, f.ymd)
		if err := a.uploader.Upload(ctx, key, bytes.NewReader(buf.Bytes())); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
	}

	if err := os.Remove(f.path); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}

func (a *Archiver) saveCursor(ctx context.Context, t time.Time) {
	if a.cursorDB == nil {
		return
	}
	_, err := a.cursorDB.Collection("sim_state").UpdateOne(ctx,
		bson.M{"key": "archive_cursor"},
		bson.M{"$set": bson.M{
			"key":        "archive_cursor",
			"value_time": t,
			"updated_at": time.Now(),
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		log.Printf("archiver: save cursor mirror: %v", err)
	}
}

// rotate deletes the oldest archive files until total size is under maxBytes.
func (a *Archiver) rotate() {
	type entry struct {
		path string
		size int64
	}

	var files []entry
	var total int64

	filepath.Walk(a.archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		files = append(files, entry{path: path, size: info.Size()})
		total += info.Size()
		return nil
	})

	if total <= a.maxBytes {
		return
	}

	// Oldest first: <class>/<ymd>.txt.gz sorts chronologically within a
	// class but not across classes, so sort by mtime instead of path.
	sort.Slice(files, func(i, j int) bool {
		fi, _ := os.Stat(files[i].path)
		fj, _ := os.Stat(files[j].path)
		if fi == nil || fj == nil {
			return files[i].path < files[j].path
		}
		return fi.ModTime().Before(fj.ModTime())
	})

	for _, f := range files {
		if total <= a.maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			log.Printf("archiver: remove %s: %v", f.path, err)
			continue
		}
		total -= f.size
		log.Printf("archiver: rotated out %s (%d bytes)", f.path, f.size)
	}
}

// S3Uploader uploads to a fixed bucket/prefix using the default AWS SDK
// credential chain.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader loads the default AWS config for region and returns an
// uploader targeting bucket/prefix.
func NewS3Uploader(ctx context.Context, region, bucket, prefix string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	return &S3Uploader{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// Upload puts body at <prefix>/<key> in the configured bucket.
func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader) error {
	fullKey := key
	if u.prefix != "" {
		fullKey = strings.TrimSuffix(u.prefix, "/") + "/" + key
	}
	buf, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(fullKey),
		Body:   bytes.NewReader(buf),
	})
	return err
}
