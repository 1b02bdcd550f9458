package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/rfp-responder/internal/server"
)

const (
	app = "rfp-responder"
)

type Config struct {
	Database *DatabaseConfig `mapstructure:"database"`
	Server   server.Config   `mapstructure:"server"`
	AI       *AIConfig       `mapstructure:"ai"`
	Mail     *MailConfig     `mapstructure:"mail"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type MailConfig struct {
	Resend *ResendConfig `mapstructure:"resend"`
}

type ResendConfig struct {
	APIKey         string        `mapstructure:"api-key"`
	APIKeyFile     string        `mapstructure:"api-key-file"`
	From           string        `mapstructure:"from"`
	APIURL         string        `mapstructure:"api-url"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "rfp-responder turns procurement requests into RFPs, mails them to vendors and scores the replies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is rfp-responder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	defaults := server.DefaultConfig()
	viper.SetDefault("database.path", app+".db")
	viper.SetDefault("server.addr", defaults.Addr)
	viper.SetDefault("server.general-limit.requests", defaults.GeneralLimit.Requests)
	viper.SetDefault("server.general-limit.window", defaults.GeneralLimit.Window)
	viper.SetDefault("server.ai-limit.requests", defaults.AILimit.Requests)
	viper.SetDefault("server.ai-limit.window", defaults.AILimit.Window)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.max-log-length", 300)
	viper.SetDefault("mail.resend.request-timeout", 15*time.Second)

	envs := map[string]string{
		"database.path":            "DATABASE_PATH",
		"server.addr":              "SERVER_ADDR",
		"ai.gemini.api-key-file":   "GEMINI_API_KEY_FILE",
		"ai.gemini.model":          "GEMINI_MODEL",
		"mail.resend.api-key-file": "RESEND_API_KEY_FILE",
		"mail.resend.from":         "RESEND_FROM",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}
}

func initConfig() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults and environment are enough when no file was asked for.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if config == nil {
		config = &Config{}
	}
	if config.Database == nil {
		config.Database = &DatabaseConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Mail == nil {
		config.Mail = &MailConfig{}
	}
	if config.Mail.Resend == nil {
		config.Mail.Resend = &ResendConfig{}
	}

	return config, nil
}
