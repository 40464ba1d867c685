package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// maxBindParams is the Postgres limit of bind parameters in a single statement.
const maxBindParams = 65535

// upsert describes a multi-row INSERT ... ON CONFLICT statement.
type upsert struct {
	table    string
	columns  []string
	conflict []string
	// compare lists the value columns that are copied from the excluded row when they differ.
	compare []string
	// touch is the timestamp column set to now() on every insert or effective update.
	touch string
	// nothing turns the statement into ON CONFLICT DO NOTHING.
	nothing bool
}

func (u upsert) statement(nrows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", u.table, strings.Join(u.columns, ", "))
	n := 1
	for r := range nrows {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range u.columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	fmt.Fprintf(&b, " ON CONFLICT (%s) ", strings.Join(u.conflict, ", "))
	if u.nothing || len(u.compare) == 0 {
		b.WriteString("DO NOTHING")
		return b.String()
	}

	set := make([]string, 0, len(u.compare)+1)
	mine := make([]string, 0, len(u.compare))
	theirs := make([]string, 0, len(u.compare))
	for _, c := range u.compare {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		mine = append(mine, u.table+"."+c)
		theirs = append(theirs, "EXCLUDED."+c)
	}
	if u.touch != "" {
		set = append(set, u.touch+" = now()")
	}
	fmt.Fprintf(&b, "DO UPDATE SET %s WHERE (%s) IS DISTINCT FROM (%s)",
		strings.Join(set, ", "), strings.Join(mine, ", "), strings.Join(theirs, ", "))

	return b.String()
}

// chunkSize is the number of rows that fit in one statement.
func (u upsert) chunkSize() int {
	return maxBindParams / len(u.columns)
}

// dedupe keeps the last row of each conflict key, in first-seen order. Postgres rejects
// statements that touch the same row twice.
func (u upsert) dedupe(rows [][]any) [][]any {
	keyIdx := make([]int, 0, len(u.conflict))
	for _, k := range u.conflict {
		for i, c := range u.columns {
			if c == k {
				keyIdx = append(keyIdx, i)
			}
		}
	}
	seen := make(map[string]int, len(rows))
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, len(keyIdx))
		for i, idx := range keyIdx {
			parts[i] = fmt.Sprint(deref(row[idx]))
		}
		key := strings.Join(parts, "\x00")
		if at, ok := seen[key]; ok {
			out[at] = row
			continue
		}
		seen[key] = len(out)
		out = append(out, row)
	}

	return out
}

// write executes the upsert in chunks inside one transaction and returns the number of rows
// inserted or effectively updated.
func (s *Store) write(ctx context.Context, u upsert, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	rows = u.dedupe(rows)
	size := u.chunkSize()
	var total int64
	err := s.InTx(ctx, func(tx *Store) error {
		for start := 0; start < len(rows); start += size {
			end := min(start+size, len(rows))
			chunk := rows[start:end]
			args := make([]any, 0, len(chunk)*len(u.columns))
			for _, r := range chunk {
				args = append(args, r...)
			}
			n, err := tx.exec(ctx, u.statement(len(chunk)), args...)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", u.table, err)
			}
			total += n
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// deleteMissing removes the provider's rows whose keyCol is not in keep.
// An empty keep set removes every row of the provider.
func (s *Store) deleteMissing(ctx context.Context, table, keyCol, provider string, keep []int64) (int64, error) {
	var (
		n   int64
		err error
	)
	if len(keep) == 0 {
		n, err = s.exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE provider = $1", table), provider)
	} else {
		n, err = s.exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE provider = $1 AND NOT (%s = ANY($2))", table, keyCol),
			provider, pq.Array(keep))
	}
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}

	return n, nil
}

func deref(v any) any {
	switch x := v.(type) {
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	default:
		return v
	}
}

// IsUndefinedTable reports whether err is a Postgres "relation does not exist" error.
func IsUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}

	return false
}
