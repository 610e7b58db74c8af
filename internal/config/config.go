package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/HaPhanBaoMinh/kubepulse/help"
	"github.com/HaPhanBaoMinh/kubepulse/internal/logger"
)

// EnvPrefix namespaces every environment variable, e.g. KUBEPULSE_URL.
const EnvPrefix = "KUBEPULSE"

const (
	DefaultURL            = "ws://localhost:8080/ws"
	DefaultReconnectDelay = 5 * time.Second
	DefaultAddr           = ":8080"
	DefaultInterval       = 5 * time.Second
)

// Client configures the dashboard.
type Client struct {
	URL            string
	ReconnectDelay time.Duration
	Log            logger.Config
}

// Validate checks the client configuration.
func (c Client) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("url must not be empty")
	}
	if c.ReconnectDelay <= 0 {
		return errors.Errorf("reconnect delay must be positive, got %s", c.ReconnectDelay)
	}
	return c.Log.Validate()
}

// Server configures the snapshot source.
type Server struct {
	Addr       string
	Kubeconfig string
	Context    string
	Mock       bool
	Interval   time.Duration
	Log        logger.Config
}

// Validate checks the server configuration.
func (s Server) Validate() error {
	if s.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if s.Interval <= 0 {
		return errors.Errorf("interval must be positive, got %s", s.Interval)
	}
	return s.Log.Validate()
}

// LoadClient parses args and overlays KUBEPULSE_* environment variables.
// Flags given explicitly win over the environment.
func LoadClient(args []string) (Client, error) {
	fs := pflag.NewFlagSet("kubepulse", pflag.ContinueOnError)
	fs.String("url", DefaultURL, "websocket endpoint streaming cluster snapshots")
	fs.Duration("reconnect-delay", DefaultReconnectDelay, "delay between reconnection attempts")
	fs.String("log-level", "info", "log level")
	fs.String("log-file", "kubepulse.log", "log file (the terminal is used for the dashboard)")

	v, err := bind(fs, args)
	if err != nil {
		return Client{}, err
	}
	c := Client{
		URL:            v.GetString("url"),
		ReconnectDelay: v.GetDuration("reconnect-delay"),
		Log: logger.Config{
			Level: v.GetString("log-level"),
			File:  v.GetString("log-file"),
		},
	}
	return c, c.Validate()
}

// LoadServer parses args and overlays KUBEPULSE_* environment variables.
func LoadServer(args []string) (Server, error) {
	fs := pflag.NewFlagSet("kubepulse-server", pflag.ContinueOnError)
	fs.String("addr", DefaultAddr, "listen address")
	fs.String("kubeconfig", filepath.Join(help.HomeDir(), ".kube", "config"), "path to kubeconfig")
	fs.String("context", "", "kube context")
	fs.Bool("mock", false, "serve a synthetic cluster")
	fs.Duration("interval", DefaultInterval, "snapshot poll interval")
	fs.String("log-level", "info", "log level")
	fs.Bool("log-color", true, "colored log output")

	v, err := bind(fs, args)
	if err != nil {
		return Server{}, err
	}
	s := Server{
		Addr:       v.GetString("addr"),
		Kubeconfig: v.GetString("kubeconfig"),
		Context:    v.GetString("context"),
		Mock:       v.GetBool("mock"),
		Interval:   v.GetDuration("interval"),
		Log: logger.Config{
			Level: v.GetString("log-level"),
			Color: v.GetBool("log-color"),
			File:  "-",
		},
	}
	return s, s.Validate()
}

func bind(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parsing flags")
	}
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "binding flags")
	}
	return v, nil
}
