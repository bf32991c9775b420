// Package config загружает настройки процесса из окружения и файла .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config содержит параметры запуска сервиса.
// Настройки, которые меняет администратор, хранятся в таблице settings.
type Config struct {
	DatabaseURL string
	Port        string
	// MaxSleep задаёт верхнюю границу ожидания flood wait.
	MaxSleep time.Duration
	// LeaseIdle задаёт время простоя соединения с другим дата-центром до закрытия.
	LeaseIdle time.Duration
	// ChannelsChunk задаёт число каналов, проверяемых параллельно.
	ChannelsChunk int
	// TransportRPS задаёт ограничение частоты вызовов RPC одной сессии.
	TransportRPS int
	// APIToken защищает HTTP-маршруты команд и циклов.
	APIToken  string
	SentryDSN string
	LogLevel  string
	LogJSON   bool
}

// Load читает .env (если файл есть) и переменные окружения.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("[CONFIG] ошибка чтения .env")
	}

	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        getString("PORT", "8080"),
		APIToken:    os.Getenv("API_TOKEN"),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		LogLevel:    getString("LOG_LEVEL", "info"),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("не задан DATABASE_URL")
	}

	var err error
	if cfg.MaxSleep, err = getSeconds("MAX_SLEEP_TIME", 300); err != nil {
		return Config{}, err
	}
	if cfg.LeaseIdle, err = getSeconds("LEASE_IDLE_TIMEOUT", 60); err != nil {
		return Config{}, err
	}
	if cfg.ChannelsChunk, err = getInt("CHANNELS_CHUNK", 5); err != nil {
		return Config{}, err
	}
	if cfg.TransportRPS, err = getInt("TRANSPORT_RPS", 1); err != nil {
		return Config{}, err
	}
	if cfg.LogJSON, err = getBool("LOG_JSON", false); err != nil {
		return Config{}, err
	}
	if cfg.ChannelsChunk < 1 {
		return Config{}, fmt.Errorf("CHANNELS_CHUNK должен быть положительным, получено %d", cfg.ChannelsChunk)
	}
	return cfg, nil
}

// SetupLogging настраивает уровень и формат логов.
func (c Config) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("[CONFIG] неизвестный уровень логов %q, используется info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("некорректное значение %s=%q: %w", key, v, err)
	}
	return n, nil
}

func getSeconds(key string, def int) (time.Duration, error) {
	n, err := getInt(key, def)
	return time.Duration(n) * time.Second, err
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("некорректное значение %s=%q: %w", key, v, err)
	}
	return b, nil
}
