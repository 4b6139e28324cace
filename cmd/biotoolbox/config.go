package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
	"github.com/tjparnell/biotoolbox-sub009/internal/score"
)

const configName = ".biotoolbox.properties"

func setDefaults() {
	viper.SetDefault("db.adaptor", "duckdb")
	viper.SetDefault("db.dsn", "%s")
	viper.SetDefault("bam.min_mapq", 0)
	viper.SetDefault("bam.workers", runtime.NumCPU())
	viper.SetDefault("chrom.prefix", chrom.DefaultPrefix)
}

// initConfig reads the properties file. A missing default file is not an
// error; a missing explicit --config file is.
func initConfig() error {
	setDefaults()
	viper.SetConfigType("properties")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.SetConfigFile(filepath.Join(home, configName))
	}
	viper.SetEnvPrefix("biotoolbox")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// options resolves the settings consumed by adapters.
func options() score.Options {
	mapq := viper.GetInt("bam.min_mapq")
	mapq = min(max(mapq, 0), 255)
	return score.Options{
		MinMapQ:     uint8(mapq),
		Workers:     max(viper.GetInt("bam.workers"), 0),
		ChromPrefix: viper.GetString("chrom.prefix"),
	}
}

// databasePath resolves a feature database name through the configured
// connection template. Names that already point at a file are kept.
func databasePath(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if adaptor := viper.GetString("db.adaptor"); adaptor != "duckdb" {
		return "", fmt.Errorf("%w: database adaptor %q", score.ErrUnsupported, adaptor)
	}
	if strings.ContainsRune(name, filepath.Separator) || strings.HasSuffix(name, ".duckdb") {
		return name, nil
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	dsn := viper.GetString("db.dsn")
	if !strings.Contains(dsn, "%s") {
		return dsn, nil
	}
	return fmt.Sprintf(dsn, name), nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage biotoolbox configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/" + configName + ".",
		Example: `  biotoolbox config                          # show all config
  biotoolbox config set bam.min_mapq 10      # skip low quality alignments
  biotoolbox config set db.dsn /data/db/%s.duckdb
  biotoolbox config get chrom.prefix         # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Printf("# %s\n", f)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	viper.Set(key, value)

	cfg := viper.ConfigFileUsed()
	if cfg == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfg = filepath.Join(home, configName)
	}

	if err := viper.WriteConfigAs(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, cfg)
	return nil
}

func runConfigGet(key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(val)
	return nil
}
