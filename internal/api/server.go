// Package api exposes a relay board (or a dummy stand-in) over HTTP.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/pflag"

	"github.com/larsks/usblrb/internal/config"
	"github.com/larsks/usblrb/internal/httpserver"
	"github.com/larsks/usblrb/internal/switchcollection"
	"github.com/larsks/usblrb/internal/switchdrivers"
)

type (
	// USBLRBConfig selects and configures the usblrb driver.
	USBLRBConfig struct {
		Device     int  `mapstructure:"device"`
		OffOnClose bool `mapstructure:"off_on_close"`
	}

	// DummyConfig configures the dummy driver.
	DummyConfig struct {
		SwitchCount uint `mapstructure:"switch_count"`
	}

	// Config holds the configuration for the API server.
	Config struct {
		ListenAddress string       `mapstructure:"listen_address"`
		ListenPort    int          `mapstructure:"listen_port"`
		ConfigFile    string       `mapstructure:"config_file"`
		Driver        string       `mapstructure:"driver"`
		USBLRB        USBLRBConfig `mapstructure:"usblrb"`
		Dummy         DummyConfig  `mapstructure:"dummy"`
	}
)

// NewConfig creates a new Config instance with default values.
func NewConfig() *Config {
	return &Config{
		ListenPort: 8080,
		Driver:     "usblrb",
	}
}

// AddFlags adds pflag flags for the configuration.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config-file", "", "Config file to use")
	fs.StringVar(&c.ListenAddress, "listen-address", c.ListenAddress, "Listen address for http server")
	fs.IntVar(&c.ListenPort, "listen-port", c.ListenPort, "Listen port for http server")
	fs.StringVar(&c.Driver, "driver", c.Driver, "Driver to use (usblrb or dummy)")
	fs.IntVar(&c.USBLRB.Device, "usblrb.device", c.USBLRB.Device, "Zero-based CH341A device index")
	fs.BoolVar(&c.USBLRB.OffOnClose, "usblrb.off-on-close", c.USBLRB.OffOnClose, "Turn all relays off on shutdown")
	fs.UintVar(&c.Dummy.SwitchCount, "dummy.switch-count", c.Dummy.SwitchCount, "Number of dummy switches")
}

// LoadConfigWithFlagSet loads the configuration with the standard
// precedence using the given flag set.
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	loader := config.NewConfigLoader()
	loader.SetFlagSet(fs)
	loader.SetConfigFile(c.ConfigFile)
	loader.SetDefaults(map[string]any{
		"listen_address": c.ListenAddress,
		"listen_port":    c.ListenPort,
		"driver":         c.Driver,
	})

	return loader.LoadConfig(c)
}

// LoadConfig loads the configuration from the command line flag set.
func (c *Config) LoadConfig() error {
	return c.LoadConfigWithFlagSet(pflag.CommandLine)
}

// Server represents the API server.
type Server struct {
	listenAddr string
	switches   switchcollection.SwitchCollection
	router     *chi.Mux
}

// NewServer creates a new Server instance, opening the configured switch
// driver.
func NewServer(cfg *Config) (*Server, error) {
	driverConfig, err := driverConfigMap(cfg)
	if err != nil {
		return nil, err
	}

	switches, err := switchdrivers.Create(cfg.Driver, driverConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", cfg.Driver, err)
	}

	if err := switches.Init(); err != nil {
		switches.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to initialize %s driver: %w", cfg.Driver, err)
	}

	s := &Server{
		listenAddr: fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort),
		switches:   switches,
	}
	s.router = s.newRouter()

	return s, nil
}

func driverConfigMap(cfg *Config) (map[string]interface{}, error) {
	switch cfg.Driver {
	case "usblrb":
		return map[string]interface{}{
			"device":       cfg.USBLRB.Device,
			"off-on-close": cfg.USBLRB.OffOnClose,
		}, nil
	case "dummy":
		return map[string]interface{}{
			"switch-count": int(cfg.Dummy.SwitchCount),
		}, nil
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
}

func (s *Server) newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/status", s.statusHandler)
	r.Post("/status", s.setStatusHandler)
	r.Get("/switch/{id}", s.switchStateHandler)
	r.Post("/switch/{id}", s.switchHandler)
	r.Post("/selftest", s.selfTestHandler)

	return r
}

// Handler returns the server's root handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until interrupted.
func (s *Server) Start() error {
	return httpserver.StartWithGracefulShutdown(s.listenAddr, s.router)
}

// Close releases the switch driver.
func (s *Server) Close() error {
	return s.switches.Close()
}
