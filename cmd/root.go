package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/logger"
	"github.com/wicaksana/cvner/internal/sweep"
)

const (
	app = "cvner"
)

type Config struct {
	Data     *DataConfig     `mapstructure:"data"`
	Spacy    *SpacyConfig    `mapstructure:"spacy"`
	Training *TrainingConfig `mapstructure:"training"`
	Sweep    *SweepConfig    `mapstructure:"sweep"`
	Tracker  *TrackerConfig  `mapstructure:"tracker"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type DataConfig struct {
	Annotations string  `mapstructure:"annotations"`
	CorpusDir   string  `mapstructure:"corpus-dir"`
	TestSplit   float64 `mapstructure:"test-split"`
	Seed        int64   `mapstructure:"seed"`
}

type SpacyConfig struct {
	Command string `mapstructure:"command"`
	Config  string `mapstructure:"config"`
	GPUID   int    `mapstructure:"gpu-id"`
}

type TrainingConfig struct {
	OutputDir string         `mapstructure:"output-dir"`
	Params    map[string]any `mapstructure:"params"`
}

type SweepConfig struct {
	Enabled    bool                       `mapstructure:"enabled"`
	URL        string                     `mapstructure:"url"`
	Project    string                     `mapstructure:"project"`
	Trials     int                        `mapstructure:"trials"`
	Metric     string                     `mapstructure:"metric"`
	APIKeyFile string                     `mapstructure:"api-key-file"`
	Parameters map[string]sweep.Parameter `mapstructure:"parameters"`
}

type TrackerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Project    string `mapstructure:"project"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cvner builds and runs a CV named-entity recognition pipeline",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cvner.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command works without a config file.
	needed := false
	for _, c := range []*cobra.Command{preprocessCmd, pseudoLabelCmd, trainCmd, inferCmd} {
		if c.CalledAs() != "" {
			needed = true
			break
		}
	}
	if !needed {
		return
	}

	viper.SetDefault("data.corpus-dir", "corpus")
	viper.SetDefault("data.test-split", 0.2)
	viper.SetDefault("data.seed", 42)
	viper.SetDefault("spacy.gpu-id", -1)
	viper.SetDefault("sweep.trials", 10)
	viper.SetDefault("sweep.metric", "ents_f")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	return l
}
