package wordsource

import (
	"context"
	"fmt"
	"regexp"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"crosswarped.com/cliques/internal/logflags"
)

var (
	tableRE  = regexp.MustCompile(`^[\w-]+\.\w+\.\w+$`)
	columnRE = regexp.MustCompile(`^\w+$`)
)

// BigQuerySource reads words from a BigQuery table with a string column.
//
// Table and column names end up in the query text and must be plain
// identifiers. Everything else is passed as a query parameter.
type BigQuerySource struct {
	ProjectID string
	// Table is the fully qualified table, e.g. "project.dataset.words".
	Table string
	// Column holds the words. Defaults to "word".
	Column string
	// Location of the dataset. Defaults to "US".
	Location string

	// Scope, if set, keeps only rows whose ScopeColumn equals it.
	Scope string
	// ScopeColumn defaults to "scope".
	ScopeColumn string
}

// ValidTable reports whether table is a fully qualified table name of the
// form project.dataset.table.
func ValidTable(table string) bool {
	return tableRE.MatchString(table)
}

func (s BigQuerySource) query() (string, error) {
	column := s.Column
	if column == "" {
		column = "word"
	}
	scopeColumn := s.ScopeColumn
	if scopeColumn == "" {
		scopeColumn = "scope"
	}
	if !ValidTable(s.Table) {
		return "", fmt.Errorf("invalid bigquery table %q", s.Table)
	}
	for _, c := range []string{column, scopeColumn} {
		if !columnRE.MatchString(c) {
			return "", fmt.Errorf("invalid bigquery column %q", c)
		}
	}

	q := fmt.Sprintf("SELECT %s FROM `%s` WHERE LENGTH(%s) = @length", column, s.Table, column)
	if s.Scope != "" {
		q += fmt.Sprintf(" AND %s = @scope", scopeColumn)
	}
	return q, nil
}

// Words returns the candidate words of the given length, normalized like
// ReadWords does.
func (s BigQuerySource) Words(ctx context.Context, length int) ([]string, error) {
	if s.ProjectID == "" || s.Table == "" {
		return nil, fmt.Errorf("bigquery source needs a project and a table")
	}

	query, err := s.query()
	if err != nil {
		return nil, err
	}

	client, err := bigquery.NewClient(ctx, s.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	defer client.Close()

	q := client.Query(query)
	q.Location = s.Location
	if q.Location == "" {
		q.Location = "US"
	}
	q.Parameters = []bigquery.QueryParameter{{Name: "length", Value: length}}
	if s.Scope != "" {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Name: "scope", Value: s.Scope})
	}

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("q.Run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Wait: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("status.Err: %w", err)
	}
	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Read: %w", err)
	}

	var words []string
	skipped := 0
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("it.Next: %w", err)
		}

		raw, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("row[0] is not a string: %v", row[0])
		}
		word, ok := Normalize(raw, length)
		if !ok {
			skipped++
			continue
		}
		words = append(words, word)
	}

	logflags.SourceLogger().WithField("table", s.Table).Infof("loaded %d words from bigquery (%d skipped)", len(words), skipped)
	return words, nil
}
