package storage

import (
	"embed"
	"fmt"
	"math"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

//go:embed migrations
var migrationsFS embed.FS

const resultsTable = "results"

var resultColumns = []string{"id", "source", "raw_data", "analysis", "sentiment", "timestamp"}

func insertResultQuery(ph sq.PlaceholderFormat, r Result) sq.InsertBuilder {
	return sq.Insert(resultsTable).
		Columns("source", "raw_data", "analysis", "sentiment", "timestamp").
		Values(r.Source, r.RawData, r.Analysis, r.Sentiment, r.Timestamp).
		PlaceholderFormat(ph)
}

func getResultQuery(ph sq.PlaceholderFormat, id int64) sq.SelectBuilder {
	return sq.Select(resultColumns...).
		From(resultsTable).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(ph)
}

func listResultsQuery(ph sq.PlaceholderFormat, limit, offset int) sq.SelectBuilder {
	q := sq.Select(resultColumns...).
		From(resultsTable).
		OrderBy("id DESC").
		PlaceholderFormat(ph)
	switch {
	case limit > 0:
		q = q.Limit(uint64(limit))
	case offset > 0:
		// SQLite rejects OFFSET without LIMIT.
		q = q.Limit(math.MaxInt64)
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}

func countResultsQuery(ph sq.PlaceholderFormat) sq.SelectBuilder {
	return sq.Select("COUNT(*)").From(resultsTable).PlaceholderFormat(ph)
}

type migration struct {
	version int
	name    string
	sql     string
}

// loadMigrations returns the embedded migrations for a dialect in ascending version order.
func loadMigrations(dialect string) ([]migration, error) {
	dir := "migrations/" + dialect
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return nil, err
		}
		content, err := migrationsFS.ReadFile(dir + "/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		out = append(out, migration{version: version, name: entry.Name(), sql: string(content)})
	}
	return out, nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}
