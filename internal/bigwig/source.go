package bigwig

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

// Interval is one full-resolution data record in 0-based half-open
// coordinates.
type Interval struct {
	Beg, End int
	Value    float64
}

// Source is one open signal file.
type Source interface {
	score.Resource
	// Summary returns statistics over [beg, end) on the native chromosome.
	Summary(name string, beg, end int) (Summary, error)
	// Intervals returns data records overlapping [beg, end), clipped to it.
	Intervals(name string, beg, end int) ([]Interval, error)
}

// Extensions recognized as signal files.
var (
	BigWigExts   = []string{".bw", ".bigwig"}
	BedGraphExts = []string{".bdg.gz", ".bedgraph.gz"}
)

func hasExt(path string, exts []string) bool {
	lower := strings.ToLower(path)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// IsSignalFile reports whether path has a signal file extension.
func IsSignalFile(path string) bool {
	return hasExt(path, BigWigExts) || hasExt(path, BedGraphExts)
}

// OpenSource opens a signal file by extension.
func OpenSource(path, prefix string, logger *zap.Logger) (Source, error) {
	switch {
	case hasExt(path, BigWigExts):
		return OpenBigWig(path, prefix)
	case hasExt(path, BedGraphExts):
		return OpenBedGraph(path, prefix, logger)
	}
	return nil, fmt.Errorf("%w: %s is not a signal file", score.ErrUnsupported, path)
}

// clip bounds an interval to [beg, end) and reports whether anything is left.
func clip(iv Interval, beg, end int) (Interval, bool) {
	iv.Beg = max(iv.Beg, beg)
	iv.End = min(iv.End, end)
	return iv, iv.Beg < iv.End
}
