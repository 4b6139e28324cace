package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tjparnell/biotoolbox-sub009/internal/fingerprint"
	"github.com/tjparnell/biotoolbox-sub009/internal/useq"
)

func newArchiveCmd() *cobra.Command {
	var (
		sliceSize int
		dataType  string
	)
	cmd := &cobra.Command{
		Use:   "archive [options] <input.bed> <output.useq>",
		Short: "Convert a six-column BED file to an interval archive",
		Example: `  biotoolbox archive peaks.bed peaks.useq
  biotoolbox archive --slice-size 5000 --type region reads.bed reads.useq`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(args[0], args[1], sliceSize, dataType)
		},
	}
	cmd.Flags().IntVar(&sliceSize, "slice-size", useq.DefaultSliceSize, "Records per archive slice")
	cmd.Flags().StringVar(&dataType, "type", "region", "Data type recorded in the archive readme")
	return cmd
}

func runArchive(in, out string, sliceSize int, dataType string) error {
	records, err := readIntervals(in)
	if err != nil {
		return err
	}
	meta := map[string]string{
		"dataType": dataType,
		"source":   filepath.Base(in),
	}
	err = fingerprint.WriteAtomic(out, func(f *os.File) error {
		return useq.Write(f, records, sliceSize, meta)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(os.Stderr, "Archived %d intervals to %s\n", len(records), out)
	return nil
}
