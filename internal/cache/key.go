package cache

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/trajectory"
)

// Key derives the dataset cache key from everything that affects the rows:
// window shape, segmentation thresholds and the name and content of each
// source, in order
func Key(params models.WindowParams, thresholds trajectory.Thresholds, sources []models.Source) string {
	h := xxhash.New()

	fmt.Fprintf(h, "window:%d:%d:%d\n", params.InputSeqLength, params.OutputSeqLength, params.NumDimensions)
	fmt.Fprintf(h, "thresholds:%d:%s\n", thresholds.MaxTimeGap.Nanoseconds(),
		strconv.FormatFloat(thresholds.MaxDisplacement, 'g', -1, 64))

	for _, s := range sources {
		fmt.Fprintf(h, "source:%s\n", s.Name)
		if s.Err != nil || s.Path == "" {
			h.WriteString("unresolved\n")
			continue
		}

		digest, err := FileDigest(s.Path)
		if err != nil {
			// an unreadable source is a problem source, not a cache failure
			h.WriteString("unreadable\n")
			continue
		}
		fmt.Fprintf(h, "content:%016x\n", digest)
	}

	return fmt.Sprintf("%016x", h.Sum64())
}

// FileDigest returns the xxhash64 of a file's content
func FileDigest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return h.Sum64(), nil
}
