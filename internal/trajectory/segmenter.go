package trajectory

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/spatial"
)

// ErrMalformedRecord is returned when a record reaching segmentation carries a
// field that cannot be interpreted
var ErrMalformedRecord = errors.New("malformed position record")

// Thresholds defines the discontinuity rules that split a position stream
type Thresholds struct {
	MaxTimeGap      time.Duration // Gap to the previous record on the same date
	MaxDisplacement float64       // Per-axis movement from the previous record
}

// DefaultThresholds provides the default segmentation thresholds
var DefaultThresholds = Thresholds{
	MaxTimeGap:      2 * time.Second,
	MaxDisplacement: 500,
}

// Validate checks the thresholds
func (t Thresholds) Validate() error {
	if t.MaxTimeGap < 0 {
		return fmt.Errorf("time threshold must be non-negative, got %s", t.MaxTimeGap)
	}
	if t.MaxDisplacement < 0 {
		return fmt.Errorf("position threshold must be non-negative, got %f", t.MaxDisplacement)
	}
	return nil
}

// Segmenter assigns trajectory IDs to position records
type Segmenter struct {
	Thresholds Thresholds
}

// NewSegmenter creates a new segmenter
func NewSegmenter(thresholds Thresholds) *Segmenter {
	return &Segmenter{Thresholds: thresholds}
}

// Segment sorts records by (person, timestamp) and labels each with a trajectory ID.
//
// A trajectory starts at the first record, at every person change, at a time gap
// above MaxTimeGap between consecutive records of one person on the same calendar
// date, and at a displacement above MaxDisplacement on either axis inside an
// otherwise continuous run. IDs are the running count of those boundaries, so the
// first trajectory is 1. The input slice is not modified.
func (s *Segmenter) Segment(records []models.PositionRecord) ([]models.LabeledRecord, error) {
	for i, r := range records {
		if err := validateRecord(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	sorted := make([]models.PositionRecord, len(records))
	copy(sorted, records)
	SortRecords(sorted)

	labeled := make([]models.LabeledRecord, len(sorted))
	var trajectoryID int64
	for i, cur := range sorted {
		kind := models.BoundaryFirst
		if i > 0 {
			kind = s.boundary(sorted[i-1], cur)
		}
		if kind != models.BoundaryNone {
			trajectoryID++
		}
		labeled[i] = models.LabeledRecord{
			PositionRecord: cur,
			TrajectoryID:   trajectoryID,
			Boundary:       kind,
		}
	}

	return labeled, nil
}

// boundary classifies the transition from prev to cur. Hard boundaries win over
// the position rule, which only applies inside a run with no hard break.
func (s *Segmenter) boundary(prev, cur models.PositionRecord) models.BoundaryKind {
	if prev.PersonID != cur.PersonID {
		return models.BoundaryPerson
	}
	// The time lag resets at a date change, so a record on a new date has no
	// predecessor to compare against.
	if sameDate(prev.Timestamp, cur.Timestamp) && absDuration(cur.Timestamp.Sub(prev.Timestamp)) > s.Thresholds.MaxTimeGap {
		return models.BoundaryTime
	}
	if spatial.ExceedsOnAnyAxis(spatial.Displacement(prev.Position, cur.Position), s.Thresholds.MaxDisplacement) {
		return models.BoundaryPosition
	}
	return models.BoundaryNone
}

// SortRecords stable-sorts records by person then timestamp. Equal keys keep
// their original relative order.
func SortRecords(records []models.PositionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if c := ComparePersonIDs(records[i].PersonID, records[j].PersonID); c != 0 {
			return c < 0
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}

// ComparePersonIDs orders numeric IDs by value and before any non-numeric ID,
// which are ordered lexicographically. IDs with equal value, like "1" and
// "1.0", fall back to text order.
func ComparePersonIDs(a, b string) int {
	ai, aInt := parseInt(a)
	bi, bInt := parseInt(b)
	if aInt && bInt {
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	}

	af, aNum := parseNumber(a)
	bf, bNum := parseNumber(b)
	switch {
	case aNum && bNum:
		if c := cmp.Compare(af, bf); c != 0 {
			return c
		}
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(a, b)
}

func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

// parseNumber accepts any finite or infinite float. NaN is not a number here.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func validateRecord(r models.PositionRecord) error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedRecord)
	}
	if r.PersonID == "" {
		return fmt.Errorf("%w: missing person id", ErrMalformedRecord)
	}
	if !spatial.IsFinite(r.Position) {
		return fmt.Errorf("%w: infinite coordinate for person %s", ErrMalformedRecord, r.PersonID)
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
