package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string
	DBDSN     string
	JWTIssuer string
	JWTSecret string
	JWTTTL    time.Duration

	LogLevel  string
	LogPretty bool

	ExchangeName      string
	ExchangeFeedURL   string
	ExchangeAPIKey    string
	ExchangeAccountID string
	SyncEnabled       bool
	SyncInterval      time.Duration
	SyncUserID        string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, errors.New("invalid JWT_TTL")
		}
		c.JWTTTL = d
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if pretty := os.Getenv("LOG_PRETTY"); pretty != "" {
		b, err := strconv.ParseBool(pretty)
		if err != nil {
			return c, errors.New("invalid LOG_PRETTY")
		}
		c.LogPretty = b
	}

	c.ExchangeName = strings.ToLower(strings.TrimSpace(os.Getenv("EXCHANGE_NAME")))
	c.ExchangeFeedURL = strings.TrimRight(os.Getenv("EXCHANGE_FEED_URL"), "/")
	c.ExchangeAPIKey = os.Getenv("EXCHANGE_API_KEY")
	c.ExchangeAccountID = os.Getenv("EXCHANGE_ACCOUNT_ID")
	c.SyncUserID = os.Getenv("SYNC_USER_ID")

	if enabled := os.Getenv("SYNC_ENABLED"); enabled != "" {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return c, errors.New("invalid SYNC_ENABLED")
		}
		c.SyncEnabled = b
	}
	c.SyncInterval = 5 * time.Minute
	if interval := os.Getenv("SYNC_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil || d <= 0 {
			return c, errors.New("invalid SYNC_INTERVAL")
		}
		c.SyncInterval = d
	}
	if c.SyncEnabled {
		if c.ExchangeName == "" {
			missing = append(missing, "EXCHANGE_NAME")
		}
		if c.ExchangeFeedURL == "" {
			missing = append(missing, "EXCHANGE_FEED_URL")
		}
		if c.SyncUserID == "" {
			missing = append(missing, "SYNC_USER_ID")
		}
	}

	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}
