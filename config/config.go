// Package config loads run settings from a YAML file, EMNIST_* environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BiggestM/EMNISTByClass/classify"
	"github.com/BiggestM/EMNISTByClass/partition"
)

// EnvPrefix is prepended to every environment variable, for example
// EMNIST_DATADIR or EMNIST_CLASSIFIER_NAME.
const EnvPrefix = "EMNIST"

// Config holds everything a run needs.
type Config struct {
	DataDir     string `mapstructure:"dataDir"`
	TrainFile   string `mapstructure:"trainFile"`
	TestFile    string `mapstructure:"testFile"`
	MappingFile string `mapstructure:"mappingFile"`

	Height int `mapstructure:"height"`
	Width  int `mapstructure:"width"`

	ValidationFraction float64 `mapstructure:"validationFraction"`
	Seed               int64   `mapstructure:"seed"`

	Scaler     string           `mapstructure:"scaler"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Report     ReportConfig     `mapstructure:"report"`

	MetricsFile string `mapstructure:"metricsFile"`
	Trace       bool   `mapstructure:"trace"`
}

// ClassifierConfig selects the classifier.
type ClassifierConfig struct {
	Name string `mapstructure:"name"`
	K    int    `mapstructure:"k"`
}

// ReportConfig controls how results are printed.
type ReportConfig struct {
	Format   string `mapstructure:"format"`
	PerClass bool   `mapstructure:"perClass"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dataDir", ".")
	v.SetDefault("trainFile", "emnist-byclass-train.csv")
	v.SetDefault("testFile", "emnist-byclass-test.csv")
	v.SetDefault("mappingFile", "emnist-byclass-mapping.txt")
	v.SetDefault("height", 28)
	v.SetDefault("width", 28)
	v.SetDefault("validationFraction", partition.DefaultFraction)
	v.SetDefault("seed", partition.DefaultSeed)
	v.SetDefault("scaler", "standard")
	v.SetDefault("classifier.name", "centroid")
	v.SetDefault("classifier.k", classify.DefaultK)
	v.SetDefault("report.format", "text")
	v.SetDefault("report.perClass", false)
	v.SetDefault("metricsFile", "")
	v.SetDefault("trace", false)
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"data-dir":            "dataDir",
	"train-file":          "trainFile",
	"test-file":           "testFile",
	"mapping-file":        "mappingFile",
	"height":              "height",
	"width":               "width",
	"validation-fraction": "validationFraction",
	"seed":                "seed",
	"scaler":              "scaler",
	"classifier":          "classifier.name",
	"k":                   "classifier.k",
	"format":              "report.format",
	"per-class":           "report.perClass",
	"metrics-file":        "metricsFile",
	"trace":               "trace",
}

// AddFlags registers one flag per configuration key on flags. Flag defaults
// match SetDefaults.
func AddFlags(flags *pflag.FlagSet) {
	flags.String("data-dir", ".", "directory holding the dataset and mapping files")
	flags.String("train-file", "emnist-byclass-train.csv", "training split file name")
	flags.String("test-file", "emnist-byclass-test.csv", "test split file name")
	flags.String("mapping-file", "emnist-byclass-mapping.txt", "class index to character mapping file name")
	flags.Int("height", 28, "image height in pixels")
	flags.Int("width", 28, "image width in pixels")
	flags.Float64("validation-fraction", partition.DefaultFraction, "share of training records held out for validation")
	flags.Int64("seed", partition.DefaultSeed, "seed of the validation split")
	flags.String("scaler", "standard", "feature scaler: standard, minmax or none")
	flags.String("classifier", "centroid", "classifier: majority, centroid or knn")
	flags.Int("k", classify.DefaultK, "neighbours consulted by the knn classifier")
	flags.String("format", "text", "report format: text or yaml")
	flags.Bool("per-class", false, "include per-class accuracy in the report")
	flags.String("metrics-file", "", "write Prometheus metrics to this file")
	flags.Bool("trace", false, "print trace spans to stderr")
}

// Load reads the configuration. path may be empty, in which case only
// defaults, the environment and flags apply. flags may be nil; flags that
// were not set on the command line do not override other sources.
func Load(fs afero.Fs, path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("error binding flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.TrainFile == "" || c.TestFile == "" || c.MappingFile == "" {
		errs = append(errs, errors.New("trainFile, testFile and mappingFile must be set"))
	}
	if c.Height <= 0 || c.Width <= 0 {
		errs = append(errs, fmt.Errorf("image shape %dx%d must be positive", c.Height, c.Width))
	}
	if !(c.ValidationFraction > 0 && c.ValidationFraction < 1) {
		errs = append(errs, fmt.Errorf("validationFraction %v must be in (0, 1)", c.ValidationFraction))
	}
	switch c.Scaler {
	case "standard", "minmax", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown scaler %q", c.Scaler))
	}
	switch c.Classifier.Name {
	case "majority", "centroid":
	case "knn":
		if c.Classifier.K <= 0 {
			errs = append(errs, fmt.Errorf("classifier.k %d must be positive", c.Classifier.K))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown classifier %q", c.Classifier.Name))
	}
	switch c.Report.Format {
	case "text", "yaml":
	default:
		errs = append(errs, fmt.Errorf("unknown report format %q", c.Report.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
