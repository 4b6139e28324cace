package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjparnell/biotoolbox-sub009/internal/bam"
)

func newCountCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "count [options] <file.bam>...",
		Short: "Count the mapped alignments or fragments of BAM files",
		Long: `Count the alignments of each BAM file, one chromosome per worker. Unmapped,
secondary and supplementary alignments and those below bam.min_mapq are skipped.
Paired data counts one fragment per proper, non-duplicate pair.`,
		Example: `  biotoolbox count reads.bam
  biotoolbox count --workers 8 a.bam b.bam`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				workers = -1
			}
			return runCount(args, workers)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Concurrent chromosome workers, 0 for one per CPU (default: bam.workers)")
	return cmd
}

// runCount counts each file. A negative workers keeps the configured
// bam.workers.
func runCount(paths []string, workers int) error {
	ctx := newContext()
	defer ctx.Close()
	if workers >= 0 {
		ctx.Options.Workers = workers
	}

	for _, path := range paths {
		n, err := bam.CountAlignments(ctx, path)
		if err != nil {
			return fmt.Errorf("counting %s: %w", path, err)
		}
		fmt.Printf("%s\t%d\n", path, n)
	}
	return nil
}
