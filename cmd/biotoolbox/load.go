package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/featdb"
)

func newLoadCmd() *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "load --db <name> <file.gff>...",
		Short: "Load GFF features into a feature database",
		Example: `  biotoolbox load --db yeast saccharomyces.gff
  biotoolbox load --db /data/db/yeast.duckdb genes.gff repeats.gff`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(db, args)
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "Feature database name or file")
	cmd.MarkFlagRequired("db")
	return cmd
}

func runLoad(name string, files []string) error {
	path, err := databasePath(name)
	if err != nil {
		return err
	}
	s, err := featdb.Open(path, options().ChromPrefix)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, file := range files {
		start := time.Now()
		f, err := openInput(file)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Hint: Check that the file path is correct\n")
			}
			return err
		}
		n, err := s.LoadGFF(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("loading %s: %w", file, err)
		}
		logger.Info("loaded features",
			zap.String("file", file), zap.Int("features", n), zap.Duration("elapsed", time.Since(start)))
		fmt.Fprintf(os.Stderr, "Loaded %d features from %s\n", n, file)
	}

	chroms, err := s.Chromosomes()
	if err != nil {
		return err
	}
	total, err := s.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s: %d features on %d chromosomes\n", path, total, len(chroms))
	return nil
}
