package logbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claude/crimpy/internal/models"
)

// Loader failures. Callers skip the offending file and report the kind.
var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrMissingDate     = errors.New("missing date")
	ErrUnparseableDate = errors.New("unparseable date")
)

// parseLayout accepts both "04-03-2025" and "4-3-2025".
const parseLayout = "2-1-2006"

// defaultOutdoorName labels outdoor records that carry no name.
const defaultOutdoorName = "Outdoor"

// Parse decodes one session file. source names the file in errors and in the record.
func Parse(r io.Reader, source string) (*models.SessionRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	var rec models.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, source, err)
	}
	rec.SourceFile = source
	if rec.Outdoor && rec.Name == "" {
		rec.Name = defaultOutdoorName
	}

	raw := strings.TrimSpace(rec.RawDate)
	if raw == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingDate, source)
	}
	date, err := time.Parse(parseLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q", ErrUnparseableDate, source, raw)
	}
	rec.Date = date
	return &rec, nil
}

// ParseFile opens and parses the session file at path. The record's SourceFile is the
// base name of path.
func ParseFile(path string) (*models.SessionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// Kind names the loader failure wrapped in err, for logs and counters.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, ErrMissingDate):
		return "missing_date"
	case errors.Is(err, ErrUnparseableDate):
		return "unparseable_date"
	default:
		return "io"
	}
}
