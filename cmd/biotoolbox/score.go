package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/dataset"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

type scoreOptions struct {
	region   string
	regions  string
	strand   string
	stranded string
	method   string
	shape    string
	list     bool
	db       string
	output   string
}

func newScoreCmd() *cobra.Command {
	var o scoreOptions
	cmd := &cobra.Command{
		Use:   "score [options] <dataset>...",
		Short: "Score regions from one or more datasets",
		Long: `Score regions from alignment files, signal files or sets, interval archives,
or feature types in a feature database. All datasets of one query must belong
to the same storage family; positional results from several datasets are
averaged per position.`,
		Example: `  biotoolbox score --region chrI:1000-2000 --method count reads.bam
  biotoolbox score --regions genes.bed --method mean plus.bw minus.bw
  biotoolbox score --region chrI:1-5000 --shape positional --method mean signal.bdg.gz
  biotoolbox score --db yeast --region chrII:1-90000 --method count gene:sgd`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(o, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.region, "region", "r", "", "Region chrom:start-stop (1-based, inclusive)")
	f.StringVar(&o.regions, "regions", "", "BED file of regions ('-' for stdin)")
	f.StringVar(&o.strand, "strand", "+", "Query strand: +, - or .")
	f.StringVar(&o.stranded, "stranded", "all", "Strandedness: sense, antisense or all")
	f.StringVarP(&o.method, "method", "m", "mean", "Method: score, count, pcount, ncount, mean, median, min, max, sum, stddev")
	f.StringVar(&o.shape, "shape", "scalar", "Result shape: scalar or positional")
	f.BoolVar(&o.list, "list", false, "Print the unordered values instead of a summary")
	f.StringVar(&o.db, "db", "", "Feature database or signal set directory")
	f.StringVarP(&o.output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func runScore(o scoreOptions, datasets []string) error {
	strand, err := score.ParseStrand(o.strand)
	if err != nil {
		return err
	}
	stranded, err := score.ParseStrandedness(o.stranded)
	if err != nil {
		return err
	}
	method, err := score.ParseMethod(o.method)
	if err != nil {
		return err
	}
	shape, err := score.ParseShape(o.shape)
	if err != nil {
		return err
	}
	db := o.db
	if db != "" && dataset.Detect(datasets[0], "") == dataset.Unknown {
		if db, err = databasePath(db); err != nil {
			return err
		}
	}

	var regions []region
	switch {
	case o.region != "" && o.regions != "":
		return fmt.Errorf("%w: use --region or --regions, not both", score.ErrInvalidParams)
	case o.region != "":
		r, err := parseRegion(o.region)
		if err != nil {
			return err
		}
		regions = []region{r}
	case o.regions != "":
		if regions, err = readRegions(o.regions); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: a --region or --regions file is required", score.ErrInvalidParams)
	}

	out := os.Stdout
	if o.output != "" {
		if out, err = os.Create(o.output); err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)

	ctx := newContext()
	defer ctx.Close()

	for _, r := range regions {
		p, err := score.NewParams(r.Chrom, r.Start, r.Stop, strand, stranded, method, shape, db, datasets...)
		if err != nil {
			return fmt.Errorf("region %s: %w", r, err)
		}
		if err := writeScores(ctx, w, p, o.list); err != nil {
			return fmt.Errorf("region %s: %w", r, err)
		}
	}
	logger.Debug("scored regions",
		zap.Int("regions", len(regions)), zap.Int("resources", ctx.ResourceCount()))
	return w.Flush()
}

func formatValue(v float64) string {
	if score.IsNoData(v) {
		return "."
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeScores(ctx *score.Context, w io.Writer, p *score.Params, list bool) error {
	switch {
	case list:
		vals, err := dataset.Scores(ctx, p)
		if err != nil {
			return err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = formatValue(v)
		}
		_, err = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", p.Chrom, p.Start, p.Stop, strings.Join(parts, ","))
		return err

	case p.Shape == score.Positional:
		m, err := dataset.PositionScores(ctx, p)
		if err != nil {
			return err
		}
		positions := make([]int64, 0, len(m))
		for pos := range m {
			positions = append(positions, pos)
		}
		sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
		for _, pos := range positions {
			if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", p.Chrom, pos, formatValue(m[pos])); err != nil {
				return err
			}
		}
		return nil
	}

	v, err := dataset.Score(ctx, p)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", p.Chrom, p.Start, p.Stop, formatValue(v))
	return err
}
