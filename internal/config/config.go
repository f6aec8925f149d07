package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"local"` // local, dev или prod
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Backend    BackendConfig    `yaml:"backend"`
	Feed       FeedConfig       `yaml:"feed"`
	Game       GameConfig       `yaml:"game"`
	Cookies    CookiesConfig    `yaml:"cookies"`
	Broadcast  BroadcastConfig  `yaml:"broadcast"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address        string        `yaml:"address" env-default:"localhost:3000"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
}

// BackendConfig адрес REST-бэкенда игры, к нему добавляется префикс /api
type BackendConfig struct {
	URL     string        `yaml:"url" env:"BACKEND_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// FeedConfig адрес канала реального времени (цены и очки)
type FeedConfig struct {
	URL string `yaml:"url" env:"FEED_URL" env-default:"ws://localhost:5000/ws"`
}

// GameConfig длительность раунда в секундах
type GameConfig struct {
	Period int `yaml:"period" env:"ROUND_PERIOD" env-default:"60"`
}

// CookiesConfig настройки cookie с токенами
type CookiesConfig struct {
	MaxAge time.Duration `yaml:"max_age" env-default:"720h"`
	Secure bool          `yaml:"secure" env-default:"false"`
}

// BroadcastConfig канал оповещения о выходе пользователя: memory или nats
type BroadcastConfig struct {
	Driver  string `yaml:"driver" env:"BROADCAST_DRIVER" env-default:"memory"`
	NatsURL string `yaml:"nats_url" env:"NATS_URL" env-default:"nats://127.0.0.1:4222"`
	Subject string `yaml:"subject" env-default:"session.events"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	// .env необязателен, переменные окружения могут прийти и снаружи
	_ = godotenv.Load()

	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
