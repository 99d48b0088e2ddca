package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r2"

	"github.com/jengzang/trajectory-prep/internal/models"
)

// TimestampLayout is the raw log layout: the fraction is separated by a colon
const TimestampLayout = "2006-01-02T15:04:05:000000"

// fieldCount is timestamp;place;x_pos;y_pos;person_id
const fieldCount = 5

var (
	// ErrEmptySource is returned for a source with no rows at all
	ErrEmptySource = errors.New("source is empty")
	// ErrNoParsableRows is returned when every row of a source was malformed
	ErrNoParsableRows = errors.New("source has no parsable rows")
)

// Result holds the records parsed from one source
type Result struct {
	Source  string
	Records []models.PositionRecord
	Skipped int // Malformed rows dropped while reading
}

// Reader parses semicolon-separated position logs
type Reader struct {
	Comma rune
}

// NewReader creates a reader for the raw log format
func NewReader() *Reader {
	return &Reader{Comma: ';'}
}

// ReadFile opens and parses the file at path
func (r *Reader) ReadFile(source models.Source) (*Result, error) {
	f, err := os.Open(source.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w", source.Name, err)
	}
	defer f.Close()

	return r.Read(source.Name, f)
}

// Read parses headerless rows from in. Malformed rows are skipped and counted.
func (r *Reader) Read(source string, in io.Reader) (*Result, error) {
	cr := csv.NewReader(in)
	cr.Comma = r.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	result := &Result{Source: source}
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to read source %s: %w", source, err)
		}

		record, err := ParseRow(fields)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Records = append(result.Records, record)
	}

	if len(result.Records) == 0 {
		if result.Skipped == 0 {
			return nil, fmt.Errorf("%s: %w", source, ErrEmptySource)
		}
		return nil, fmt.Errorf("%s: %w (%d malformed)", source, ErrNoParsableRows, result.Skipped)
	}

	if result.Skipped > 0 {
		log.Printf("[Reader] %s: skipped %d malformed rows", source, result.Skipped)
	}

	return result, nil
}

// ParseRow converts one split row into a position record
func ParseRow(fields []string) (models.PositionRecord, error) {
	if len(fields) != fieldCount {
		return models.PositionRecord{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}

	ts, err := ParseTimestamp(fields[0])
	if err != nil {
		return models.PositionRecord{}, err
	}

	x, err := parseCoordinate(fields[2])
	if err != nil {
		return models.PositionRecord{}, fmt.Errorf("invalid x_pos: %w", err)
	}
	y, err := parseCoordinate(fields[3])
	if err != nil {
		return models.PositionRecord{}, fmt.Errorf("invalid y_pos: %w", err)
	}

	person := strings.TrimSpace(fields[4])
	if person == "" {
		return models.PositionRecord{}, fmt.Errorf("missing person_id")
	}

	return models.PositionRecord{
		Timestamp: ts,
		Place:     strings.TrimSpace(fields[1]),
		Position:  r2.Point{X: x, Y: y},
		PersonID:  person,
	}, nil
}

// ParseTimestamp parses YYYY-MM-DDTHH:MM:SS:ffffff. A '.' before the fraction
// and a missing fraction are accepted as well. Times are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t := strings.IndexByte(s, 'T'); t >= 0 && strings.Count(s[t:], ":") == 3 {
		i := strings.LastIndexByte(s, ':')
		s = s[:i] + "." + s[i+1:]
	}

	ts, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return ts, nil
}

// FormatTimestamp renders ts in the raw log layout
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format("2006-01-02T15:04:05") + fmt.Sprintf(":%06d", ts.Nanosecond()/1000)
}

// parseCoordinate returns NaN for an empty field; infinities are rejected
func parseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("infinite value %q", s)
	}
	return v, nil
}
