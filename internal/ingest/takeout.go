// Package ingest turns a Google Takeout export into normalized RawEvents.
package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yishak-cs/FlavorAI/internal/models"
)

// DefaultMaxEntryBytes caps how much of a single archive entry is read
const DefaultMaxEntryBytes int64 = 32 << 20

// ErrInvalidArchive is returned when the upload is not a readable zip file
var ErrInvalidArchive = errors.New("invalid takeout archive")

var (
	errEntryNotFound = errors.New("entry not found in archive")
	utf8BOM          = []byte{0xef, 0xbb, 0xbf}
)

// Manifest names the archive entries expected for each event source. An
// empty name means the source is not expected.
type Manifest struct {
	LocationHistory string
	Reviews         string
	Orders          string
}

// DefaultManifest returns the entry names of a standard Takeout export
func DefaultManifest() Manifest {
	return Manifest{
		LocationHistory: "Takeout/Location History/location-history.json",
		Reviews:         "Takeout/Maps (your places)/Reviews.json",
		Orders:          "Takeout/Orders/orders.json",
	}
}

// Result is the outcome of one ingestion. Warning is nil when every expected
// source parsed cleanly.
type Result struct {
	Events  []models.RawEvent
	Warning *models.PartialIngestWarning
}

// Ingestor parses Takeout archives
type Ingestor struct {
	manifest      Manifest
	maxEntryBytes int64
}

// NewIngestor creates an ingestor; maxEntryBytes <= 0 selects the default
func NewIngestor(manifest Manifest, maxEntryBytes int64) *Ingestor {
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}
	return &Ingestor{manifest: manifest, maxEntryBytes: maxEntryBytes}
}

// entrySource abstracts over zip archives and extracted directories
type entrySource interface {
	open(name string) (io.ReadCloser, string, error)
}

// IngestZip parses a zip archive. Only an unreadable container is an error;
// bad or missing entries are reported in Result.Warning.
func (i *Ingestor) IngestZip(r io.ReaderAt, size int64) (Result, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	return i.ingest(zipSource{reader: zr}), nil
}

// IngestDir parses an already extracted archive rooted at dir
func (i *Ingestor) IngestDir(dir string) (Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open takeout directory: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("takeout path %s is not a directory", dir)
	}
	return i.ingest(dirSource{root: dir}), nil
}

func (i *Ingestor) ingest(src entrySource) Result {
	warning := &models.PartialIngestWarning{}
	var events []models.RawEvent

	steps := []struct {
		kind  models.EventKind
		entry string
		parse func([]byte, *models.PartialIngestWarning) ([]models.RawEvent, error)
	}{
		{models.EventVisit, i.manifest.LocationHistory, parseLocationHistory},
		{models.EventReview, i.manifest.Reviews, parseReviews},
		{models.EventOrder, i.manifest.Orders, parseOrders},
	}

	for _, step := range steps {
		if step.entry == "" {
			continue
		}
		data, name, err := i.readEntry(src, step.entry)
		if err != nil {
			warning.AddFailure(step.kind, step.entry, err.Error())
			continue
		}
		parsed, err := step.parse(data, warning)
		if err != nil {
			warning.AddFailure(step.kind, name, err.Error())
			continue
		}
		log.Debug().Str("entry", name).Int("events", len(parsed)).Msg("Parsed takeout entry")
		events = append(events, parsed...)
	}

	if warning.Empty() {
		warning = nil
	}
	return Result{Events: events, Warning: warning}
}

func (i *Ingestor) readEntry(src entrySource, name string) ([]byte, string, error) {
	rc, resolved, err := src.open(name)
	if err != nil {
		return nil, name, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, i.maxEntryBytes+1))
	if err != nil {
		return nil, resolved, fmt.Errorf("failed to read %s: %w", resolved, err)
	}
	if int64(len(data)) > i.maxEntryBytes {
		return nil, resolved, fmt.Errorf("entry %s exceeds %d bytes", resolved, i.maxEntryBytes)
	}
	return bytes.TrimPrefix(data, utf8BOM), resolved, nil
}

type zipSource struct {
	reader *zip.Reader
}

// open matches the exact entry path first, then the first entry (in archive
// order) sharing its base name.
func (s zipSource) open(name string) (io.ReadCloser, string, error) {
	var fallback *zip.File
	base := path.Base(name)
	for _, f := range s.reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Name == name {
			fallback = f
			break
		}
		if fallback == nil && strings.EqualFold(path.Base(f.Name), base) {
			fallback = f
		}
	}
	if fallback == nil {
		return nil, name, errEntryNotFound
	}
	rc, err := fallback.Open()
	if err != nil {
		return nil, fallback.Name, fmt.Errorf("failed to open %s: %w", fallback.Name, err)
	}
	return rc, fallback.Name, nil
}

type dirSource struct {
	root string
}

func (s dirSource) open(name string) (io.ReadCloser, string, error) {
	exact := filepath.Join(s.root, filepath.FromSlash(name))
	if f, err := os.Open(exact); err == nil {
		return f, name, nil
	}

	base := path.Base(name)
	var found string
	walkErr := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), base) {
			found = p
			return fs.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return nil, name, fmt.Errorf("failed to scan %s: %w", s.root, walkErr)
	}
	if found == "" {
		return nil, name, errEntryNotFound
	}
	f, err := os.Open(found)
	if err != nil {
		return nil, found, fmt.Errorf("failed to open %s: %w", found, err)
	}
	rel, _ := filepath.Rel(s.root, found)
	return f, filepath.ToSlash(rel), nil
}
