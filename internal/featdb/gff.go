package featdb

import (
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"

	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

const loadBatch = 10000

// LoadGFF reads GFF features from r into the store and returns the number
// loaded. Both "tag value" and "tag=value" attribute styles are accepted.
func (s *Store) LoadGFF(r io.Reader) (int, error) {
	sc := featio.NewScanner(gff.NewReader(r))
	batch := make([]*Feature, 0, loadBatch)
	n := 0
	for sc.Next() {
		g, ok := sc.Feat().(*gff.Feature)
		if !ok {
			continue
		}
		batch = append(batch, fromGFF(g))
		if len(batch) == loadBatch {
			if err := s.AddFeatures(batch); err != nil {
				return n, err
			}
			n += len(batch)
			batch = batch[:0]
		}
	}
	if err := sc.Error(); err != nil {
		return n, fmt.Errorf("read gff: %w", err)
	}
	if err := s.AddFeatures(batch); err != nil {
		return n, err
	}
	return n + len(batch), nil
}

func fromGFF(g *gff.Feature) *Feature {
	f := &Feature{
		SeqID:      g.SeqName,
		Source:     g.Source,
		Type:       g.Feature,
		Start:      int64(g.FeatStart) + 1,
		Stop:       int64(g.FeatEnd),
		Score:      score.NoData,
		Attributes: make(map[string]string),
	}
	if g.FeatScore != nil {
		f.Score = *g.FeatScore
	}
	switch g.FeatStrand {
	case seq.Plus:
		f.Strand = score.Forward
	case seq.Minus:
		f.Strand = score.Reverse
	}
	for _, a := range g.FeatAttributes {
		tag, val := a.Tag, a.Value
		if val == "" {
			tag, val, _ = strings.Cut(tag, "=")
		}
		f.Attributes[tag] = strings.Trim(val, `"`)
	}
	switch {
	case f.Attributes["Name"] != "":
		f.Name = f.Attributes["Name"]
	case f.Attributes["ID"] != "":
		f.Name = f.Attributes["ID"]
	}
	return f
}
