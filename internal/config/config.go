package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTP        HTTPServer
	Database    Database `envPrefix:"DB_"`
	JWT         JWT      `envPrefix:"JWT_"`
	Cache       Cache
	Admin       Admin `envPrefix:"ADMIN_"`

	// PublicOrigin is the storefront origin used to build verification links.
	PublicOrigin string `env:"PUBLIC_ORIGIN" envDefault:"http://localhost:5173"`
	// QRRenderURL is the external image service that turns a link into a QR code.
	QRRenderURL string `env:"QR_RENDER_URL" envDefault:"https://api.qrserver.com/v1/create-qr-code/"`
	// MailFrom is the sender address on outgoing notifications.
	MailFrom string `env:"MAIL_FROM" envDefault:"no-reply@gearstore.local"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"3000"`
}

type Database struct {
	Driver   string `env:"DRIVER" envDefault:"postgres"` // postgres, mysql, sqlite
	URL      string `env:"URL"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

type JWT struct {
	Secret string        `env:"SECRET" envDefault:"your-super-secret-key-change-in-production"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

type Cache struct {
	RedisAddr string        `env:"REDIS_ADDR"`
	TTL       time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

type Admin struct {
	Email    string `env:"EMAIL" envDefault:"admin@example.com"`
	Password string `env:"PASSWORD" envDefault:"admin123"`
}

// Address returns host:port for the HTTP listener.
func (c *Config) Address() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}

// Load parses the process environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
