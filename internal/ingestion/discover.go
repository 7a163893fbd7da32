package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/guttosm/cryptopulse/internal/domain/models"
)

var (
	// ErrNoInputFiles is returned when a batch directory is missing or holds no CSV files.
	ErrNoInputFiles = errors.New("no csv files found")
	// ErrUnroutable marks a file that matches no raw table by name or header.
	ErrUnroutable = errors.New("unknown file type")
	// ErrSchemaIncompatible marks a file whose header cannot be mapped onto a raw table.
	ErrSchemaIncompatible = errors.New("schema incompatible")
)

// filenameRoutes is checked in order; the first fragment contained in the
// lowercased base name wins.
var filenameRoutes = []struct {
	fragment string
	table    models.RawTable
}{
	{"user_profile", models.TableUserProfiles},
	{"order_book", models.TableOrderBook},
	{"trade", models.TableUserTrades},
}

// Discover lists the *.csv files of dir sorted by name. The extension is
// matched case-insensitively; subdirectories are ignored.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s does not exist", ErrNoInputFiles, dir)
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, dir)
	}
	sort.Strings(files)
	return files, nil
}

// Route maps a file to its raw table, first by filename convention and then
// by the columns of its normalized header.
func Route(name string, header []string) (models.RawTable, error) {
	lower := strings.ToLower(filepath.Base(name))
	for _, r := range filenameRoutes {
		if strings.Contains(lower, r.fragment) {
			return r.table, nil
		}
	}

	has := make(map[string]bool, len(header))
	for _, h := range header {
		has[h] = true
	}
	switch {
	case has["trade_id"]:
		return models.TableUserTrades, nil
	case has["level"] && has["side"]:
		return models.TableOrderBook, nil
	case has["user_id"] && has["email"]:
		return models.TableUserProfiles, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnroutable, filepath.Base(name))
}
