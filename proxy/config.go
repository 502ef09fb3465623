// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/metadata-proxy/lib/logging"
)

// Defaults for Config.
const (
	DefaultMetadataHost        = "0.0.0.0"
	DefaultMetadataPort        = 9697
	DefaultMetadataProxySocket = "/var/lib/neutron/metadata_proxy"
)

// Config is the configuration of one metadata proxy process. It can be
// loaded from YAML and overridden by command-line flags.
type Config struct {
	// NetworkID, RouterID and DomainID select the tenant context. At
	// least one is required; see NewContext for precedence.
	NetworkID string `yaml:"network_id"`
	RouterID  string `yaml:"router_id"`
	DomainID  string `yaml:"domain_id"`

	// PIDFile is the singleton guard location. Required with Daemonize.
	PIDFile string `yaml:"pid_file"`

	// Daemonize runs the proxy in the background.
	Daemonize bool `yaml:"daemonize"`

	// MetadataHost and MetadataPort are the listen address for instance
	// requests.
	MetadataHost string `yaml:"metadata_host"`
	MetadataPort int    `yaml:"metadata_port"`

	// MetadataProxySocket is the backend metadata service's Unix socket.
	MetadataProxySocket string `yaml:"metadata_proxy_socket"`

	// ConnectTimeout bounds dialing the backend socket. Zero disables it.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// RequestTimeout bounds each backend exchange. Must be positive.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// LogFile, when set, receives rotated JSON logs instead of stderr.
	LogFile string `yaml:"log_file"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with every default applied and no
// context selected.
func DefaultConfig() Config {
	return Config{
		MetadataHost:        DefaultMetadataHost,
		MetadataPort:        DefaultMetadataPort,
		MetadataProxySocket: DefaultMetadataProxySocket,
		RequestTimeout:      DefaultRequestTimeout,
		LogLevel:            "info",
	}
}

// LoadConfig loads a configuration from a YAML file. Keys absent from
// the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// AddFlags registers the configuration flags on flagSet, bound to c.
// Each flag's default is c's current value, so registering on a loaded
// file configuration lets the command line override only what it names.
func (c *Config) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.NetworkID, "network-id", c.NetworkID, "network that will have instance metadata proxied")
	flagSet.StringVar(&c.RouterID, "router-id", c.RouterID, "router that will have connected instances' metadata proxied")
	flagSet.StringVar(&c.DomainID, "domain-id", c.DomainID, "L3 domain that will have connected instances' metadata proxied")
	flagSet.StringVar(&c.PIDFile, "pid-file", c.PIDFile, "location of pid file of this process")
	flagSet.BoolVar(&c.Daemonize, "daemonize", c.Daemonize, "run as daemon")
	flagSet.StringVar(&c.MetadataHost, "metadata-host", c.MetadataHost, "IP address to listen for metadata server requests")
	flagSet.IntVar(&c.MetadataPort, "metadata-port", c.MetadataPort, "TCP port to listen for metadata server requests")
	flagSet.StringVar(&c.MetadataProxySocket, "metadata-proxy-socket", c.MetadataProxySocket, "location of metadata proxy UNIX domain socket")
	flagSet.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "timeout for connecting to the metadata proxy socket (0 disables)")
	flagSet.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "timeout for a complete request to the metadata backend")
	flagSet.StringVar(&c.LogFile, "log-file", c.LogFile, "write rotated JSON logs to this file instead of stderr")
	flagSet.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
}

// Context returns the tenant context selected by the configuration.
func (c *Config) Context() (Context, error) {
	return NewContext(c.NetworkID, c.RouterID, c.DomainID)
}

// InstanceID returns the id that names this proxy process in its
// pidfile guard and command line: the domain id, else the network id,
// else the router id. It can differ from Context().ID() when both a
// network and a router id are set.
func (c *Config) InstanceID() string {
	switch {
	case c.DomainID != "":
		return c.DomainID
	case c.NetworkID != "":
		return c.NetworkID
	default:
		return c.RouterID
	}
}

// ListenAddress returns host:port for the metadata listener.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.MetadataHost, strconv.Itoa(c.MetadataPort))
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.Context(); err != nil {
		return err
	}
	if c.MetadataPort <= 0 || c.MetadataPort > 65535 {
		return fmt.Errorf("metadata_port %d is out of range", c.MetadataPort)
	}
	if c.MetadataProxySocket == "" {
		return fmt.Errorf("metadata_proxy_socket is required")
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.Daemonize && c.PIDFile == "" {
		return fmt.Errorf("pid_file is required when daemonize is set")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
