package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	CalendarJitsi = "jitsi"
	CalendarHTTP  = "http"
	CalendarNone  = "none"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN"`
	DBDriver      string `env:"DB_DRIVER" envDefault:"postgres"`
	DBDSN         string `env:"DB_DSN"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"mentor_scheduler.db"`
	Environment   string `env:"ENV" envDefault:"development"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	Timezone      string `env:"TIMEZONE" envDefault:"Europe/Moscow"`

	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret string `env:"JWT_SECRET"`

	Booking Booking

	CalendarProvider string        `env:"CALENDAR_PROVIDER" envDefault:"jitsi"`
	CalendarBaseURL  string        `env:"CALENDAR_BASE_URL"`
	CalendarToken    string        `env:"CALENDAR_TOKEN"`
	CalendarTimeout  time.Duration `env:"CALENDAR_TIMEOUT" envDefault:"10s"`
	CalendarRetries  uint64        `env:"CALENDAR_RETRIES" envDefault:"3"`
	JitsiBaseURL     string        `env:"JITSI_BASE_URL" envDefault:"https://meet.jit.si"`

	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"*/5 * * * *"`
	OTelEndpoint  string `env:"OTEL_ENDPOINT"`
}

// Booking ограничения движка бронирования
type Booking struct {
	MinCancelNotice        time.Duration `env:"MIN_CANCEL_NOTICE" envDefault:"24h"`
	MinMessageLength       int           `env:"MIN_MESSAGE_LENGTH" envDefault:"10"`
	MaxDurationMinutes     int           `env:"MAX_DURATION_MINUTES" envDefault:"240"`
	DefaultDurationMinutes int           `env:"DEFAULT_DURATION_MINUTES" envDefault:"60"`
	HorizonDays            int           `env:"SLOT_HORIZON_DAYS" envDefault:"28"`
	SlotLimit              int           `env:"SLOT_LIMIT" envDefault:"20"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return Parse()
}

// Parse читает конфигурацию только из переменных окружения
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.CalendarProvider = strings.ToLower(strings.TrimSpace(cfg.CalendarProvider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет обязательные поля с учётом выбранного драйвера и провайдера
func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverPostgres:
		if c.DBDSN == "" {
			errs = append(errs, errors.New("DB_DSN is required for postgres driver"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver))
	}

	switch c.CalendarProvider {
	case CalendarJitsi, CalendarNone:
	case CalendarHTTP:
		if c.CalendarBaseURL == "" {
			errs = append(errs, errors.New("CALENDAR_BASE_URL is required for http calendar provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("CALENDAR_PROVIDER must be one of jitsi, http, none, got %q", c.CalendarProvider))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}
	if c.Booking.MinCancelNotice < 0 {
		errs = append(errs, errors.New("MIN_CANCEL_NOTICE must not be negative"))
	}
	if c.Booking.DefaultDurationMinutes <= 0 {
		errs = append(errs, errors.New("DEFAULT_DURATION_MINUTES must be positive"))
	}
	if c.Booking.MaxDurationMinutes < c.Booking.DefaultDurationMinutes {
		errs = append(errs, errors.New("MAX_DURATION_MINUTES must not be less than DEFAULT_DURATION_MINUTES"))
	}
	if c.Booking.HorizonDays <= 0 {
		errs = append(errs, errors.New("SLOT_HORIZON_DAYS must be positive"))
	}

	return errors.Join(errs...)
}

// HTTPEnabled сообщает, что HTTP API нужно запускать
func (c *Config) HTTPEnabled() bool {
	return c.HTTPAddr != "" && c.JWTSecret != ""
}

// Location часовой пояс для сообщений бота
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
