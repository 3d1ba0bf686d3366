package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret string
	}
	Jira struct {
		BaseURL  string
		Email    string
		APIToken string
	}
	Email EmailConfig
	Notify struct {
		SlackToken   string
		SlackChannel string
	}
}

// EmailConfig selects one of the delivery transports and carries the
// credentials for all of them. Service is one of smtp, sendgrid, mailgun,
// gmail.
type EmailConfig struct {
	Service  string
	From     string
	FromName string
	SMTP     SMTPConfig
	SendGrid SendGridConfig
	Mailgun  MailgunConfig
	Gmail    GmailConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type SendGridConfig struct {
	APIKey string
}

type MailgunConfig struct {
	Domain string
	APIKey string
}

type GmailConfig struct {
	Username    string
	AppPassword string
}

// LoadConfig loads the configuration from config.yaml
func LoadConfig() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("reportmill")
	viper.AutomaticEnv()

	var config Config

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use default values
			config.Database.Path = "data/reportmill.db"
			config.Server.Port = 8080
			config.Email.Service = "smtp"

			// Create default config file
			viper.Set("database.path", config.Database.Path)
			viper.Set("server.port", config.Server.Port)
			viper.Set("email.service", config.Email.Service)

			// Ensure data directory exists
			if err := os.MkdirAll("data", 0755); err != nil {
				fmt.Printf("Warning: Failed to create data directory: %v\n", err)
			}

			if err := viper.SafeWriteConfig(); err != nil {
				fmt.Printf("Warning: Failed to write default config: %v\n", err)
			}
		} else {
			fmt.Printf("Error reading config file: %v\n", err)
		}
	} else {
		if err := viper.Unmarshal(&config); err != nil {
			fmt.Printf("Error unmarshaling config: %v\n", err)
		}
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Database.Path == "" {
		config.Database.Path = "data/reportmill.db"
	}
	if config.Email.Service == "" {
		config.Email.Service = "smtp"
	}

	return &config
}
