package featdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"sort"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/tjparnell/biotoolbox-sub009/internal/intervals"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Feature is one stored feature. Coordinates are 1-based inclusive. A NaN
// score is stored as NULL.
type Feature struct {
	SeqID      string
	Source     string
	Type       string
	Start      int64
	Stop       int64
	Strand     score.Strand
	Score      float64
	Name       string
	Attributes map[string]string
}

// Record converts f to a 0-based half-open interval record.
func (f *Feature) Record() intervals.Record {
	beg, end := score.HalfOpen(f.Start, f.Stop)
	return intervals.Record{
		Chrom:  f.SeqID,
		Beg:    beg,
		End:    end,
		Strand: f.Strand,
		Score:  f.Score,
		Name:   f.Name,
	}
}

// Dataset selects features by primary tag and, optionally, source.
type Dataset struct {
	Type   string
	Source string
}

// ParseDataset parses "type" or "type:source".
func ParseDataset(id string) (Dataset, error) {
	typ, source, _ := strings.Cut(id, ":")
	if typ == "" {
		return Dataset{}, fmt.Errorf("%w: empty feature type in %q", score.ErrInvalidParams, id)
	}
	return Dataset{Type: typ, Source: source}, nil
}

func (d Dataset) String() string {
	if d.Source == "" {
		return d.Type
	}
	return d.Type + ":" + d.Source
}

// encodeAttributes writes attributes as sorted key=value pairs joined by ';'.
func encodeAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, ";")
}

func decodeAttributes(s string) map[string]string {
	if s == "" {
		return nil
	}
	attrs := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		if k, v, ok := strings.Cut(part, "="); ok {
			attrs[k] = v
		}
	}
	return attrs
}

// AddFeatures bulk-inserts features using the Appender API. The batch is
// rejected as a whole when any feature has invalid coordinates.
func (s *Store) AddFeatures(features []*Feature) error {
	if len(features) == 0 {
		return nil
	}
	for _, f := range features {
		if f.Start < 1 || f.Start > f.Stop {
			return fmt.Errorf("feature %s:%d-%d: invalid coordinates", f.SeqID, f.Start, f.Stop)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "features")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, f := range features {
		var sc any
		if !math.IsNaN(f.Score) {
			sc = f.Score
		}
		if err := appender.AppendRow(
			f.SeqID, f.Source, f.Type, f.Start, f.Stop, int8(f.Strand),
			sc, f.Name, encodeAttributes(f.Attributes),
		); err != nil {
			return fmt.Errorf("append feature: %w", err)
		}
	}
	if err := appender.Flush(); err != nil {
		return fmt.Errorf("flush features: %w", err)
	}
	return s.refreshChroms()
}

// Features calls fn for every feature of d on seqID overlapping the 1-based
// interval [start, stop], ordered by start.
func (s *Store) Features(d Dataset, seqID string, start, stop int64, fn func(*Feature)) (int, error) {
	query := `SELECT seq_id, source, primary_tag, start, stop, strand, score, name, attributes
		FROM features
		WHERE seq_id = ? AND primary_tag = ? AND start <= ? AND stop >= ?`
	args := []any{seqID, d.Type, stop, start}
	if d.Source != "" {
		query += ` AND source = ?`
		args = append(args, d.Source)
	}
	query += ` ORDER BY start, stop`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return 0, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			f      Feature
			strand int8
			sc     sql.NullFloat64
			attrs  string
		)
		if err := rows.Scan(&f.SeqID, &f.Source, &f.Type, &f.Start, &f.Stop, &strand, &sc, &f.Name, &attrs); err != nil {
			return n, fmt.Errorf("scan feature: %w", err)
		}
		f.Strand = score.Strand(strand)
		f.Score = score.NoData
		if sc.Valid {
			f.Score = sc.Float64
		}
		f.Attributes = decodeAttributes(attrs)
		fn(&f)
		n++
	}
	return n, rows.Err()
}
