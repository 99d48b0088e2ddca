package archive

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mholt/archiver"

	"github.com/jengzang/trajectory-prep/internal/models"
)

// Default archive naming used by the raw position dumps
const (
	DefaultPrefix = "al_position"
	DefaultSuffix = "tar.gz"
)

// Discover lists archives in dir whose names start with prefix and end with
// suffix, sorted by name
func Discover(dir, prefix, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	var archives []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		archives = append(archives, filepath.Join(dir, name))
	}
	sort.Strings(archives)

	return archives, nil
}

// ExtractedPath returns the folder an archive unpacks into: the archive path
// with everything after the first '.' of its base name removed
func ExtractedPath(archivePath string) string {
	base := filepath.Base(archivePath)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return filepath.Join(filepath.Dir(archivePath), base)
}

// Extract unpacks a tar.gz archive next to itself and returns the folder.
// Extraction is skipped when the folder already exists.
func Extract(archivePath string) (string, error) {
	dest := ExtractedPath(archivePath)
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return dest, nil
	}

	log.Printf("[Archive] Extracting %s", filepath.Base(archivePath))
	if err := archiver.NewTarGz().Unarchive(archivePath, dest); err != nil {
		os.RemoveAll(dest)
		return "", fmt.Errorf("failed to extract %s: %w", filepath.Base(archivePath), err)
	}

	return dest, nil
}

// FirstDataFile returns the first regular, non-hidden file under folder in
// lexical walk order
func FirstDataFile(folder string) (string, error) {
	var found string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != folder && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to search %s: %w", folder, err)
	}
	if found == "" {
		return "", fmt.Errorf("no data file in %s", folder)
	}

	return found, nil
}

// Catalog resolves raw archives into readable sources
type Catalog struct {
	Dir    string
	Prefix string
	Suffix string
	Limit  int // Maximum number of archives, 0 means all
}

// NewCatalog creates a catalog over dir with the default naming
func NewCatalog(dir string, limit int) *Catalog {
	return &Catalog{
		Dir:    dir,
		Prefix: DefaultPrefix,
		Suffix: DefaultSuffix,
		Limit:  limit,
	}
}

// Sources discovers, extracts and resolves every archive. An archive that
// cannot be extracted or holds no data file is returned with Err set so it
// can be reported as a problem source.
func (c *Catalog) Sources() ([]models.Source, error) {
	archives, err := Discover(c.Dir, c.Prefix, c.Suffix)
	if err != nil {
		return nil, err
	}
	if c.Limit > 0 && len(archives) > c.Limit {
		archives = archives[:c.Limit]
	}

	sources := make([]models.Source, 0, len(archives))
	for _, a := range archives {
		source := models.Source{Name: filepath.Base(a), Archive: a}

		folder, err := Extract(a)
		if err != nil {
			source.Err = err
			sources = append(sources, source)
			continue
		}

		path, err := FirstDataFile(folder)
		if err != nil {
			source.Err = err
			sources = append(sources, source)
			continue
		}

		source.Name = filepath.Base(path)
		source.Path = path
		sources = append(sources, source)
	}

	log.Printf("[Archive] Resolved %d sources from %s", len(sources), c.Dir)
	return sources, nil
}
