// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/metadata-proxy/lib/daemon"
	"github.com/bureau-foundation/metadata-proxy/lib/logging"
	"github.com/bureau-foundation/metadata-proxy/lib/pidfile"
	"github.com/bureau-foundation/metadata-proxy/lib/process"
	"github.com/bureau-foundation/metadata-proxy/lib/version"
	"github.com/bureau-foundation/metadata-proxy/proxy"
)

// shutdownGrace bounds how long in-flight requests may run after a
// shutdown signal.
const shutdownGrace = 30 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// options are the command-line inputs that are not part of proxy.Config.
type options struct {
	configPath  string
	showVersion bool
	showHelp    bool
}

// parseOptions builds the configuration: defaults, then the YAML file
// named by --config, then any flags given explicitly.
func parseOptions(args []string) (proxy.Config, options, *pflag.FlagSet, error) {
	var opts options
	config := proxy.DefaultConfig()
	flagSet := newFlagSet(&config, &opts)
	if err := flagSet.Parse(args); err != nil {
		return config, opts, flagSet, err
	}
	if opts.configPath == "" || opts.showVersion || opts.showHelp {
		return config, opts, flagSet, nil
	}

	loaded, err := proxy.LoadConfig(opts.configPath)
	if err != nil {
		return config, opts, flagSet, err
	}
	config = *loaded
	// Parse again over the file values; only flags present in args
	// change anything.
	flagSet = newFlagSet(&config, &opts)
	if err := flagSet.Parse(args); err != nil {
		return config, opts, flagSet, err
	}
	return config, opts, flagSet, nil
}

func newFlagSet(config *proxy.Config, opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("metadata-proxy", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", opts.configPath, "path to a YAML config file; flags override its values")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&opts.showHelp, "help", "h", false, "show help")
	config.AddFlags(flagSet)
	return flagSet
}

func run(args []string) error {
	config, opts, flagSet, err := parseOptions(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.showHelp {
		fmt.Fprintf(os.Stderr, "Usage: metadata-proxy [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}
	if opts.showVersion {
		fmt.Printf("metadata-proxy %s\n", version.Full())
		return nil
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	proxyContext, err := config.Context()
	if err != nil {
		return err
	}

	if config.Daemonize && !daemon.IsDetached() {
		if err := absolutePaths(&config, &opts); err != nil {
			return err
		}
		if pidfile.IsRunning(config.PIDFile, config.InstanceID()) {
			return fmt.Errorf("pidfile %s already exists; is the proxy for %s already running?", config.PIDFile, proxyContext)
		}
		pid, err := daemon.Detach(detachedArgs(args, config, opts))
		if err != nil {
			return fmt.Errorf("daemonizing: %w", err)
		}
		fmt.Fprintf(os.Stderr, "metadata-proxy for %s started in background (pid %d)\n", proxyContext, pid)
		return nil
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level: config.LogLevel,
		File:  config.LogFile,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting metadata-proxy", "version", version.Info())
	logConfig(logger, config, proxyContext)

	// A detached proxy's stderr is /dev/null; the log is the only place
	// its failures can be seen.
	if err := start(config, proxyContext, logger); err != nil {
		logger.Error("metadata-proxy stopped", "error", err)
		return err
	}
	return nil
}

// start holds the pidfile for the life of the proxy and serves.
func start(config proxy.Config, proxyContext proxy.Context, logger *slog.Logger) error {
	if config.PIDFile != "" {
		lock, err := pidfile.Acquire(config.PIDFile)
		if err != nil {
			return fmt.Errorf("acquiring pidfile: %w", err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("releasing pidfile failed", "path", lock.Path(), "error", err)
			}
		}()
	}

	return serve(config, proxyContext, logger)
}

// absolutePaths resolves every path option against the current working
// directory. The detached child runs from "/".
func absolutePaths(config *proxy.Config, opts *options) error {
	for _, path := range []*string{&opts.configPath, &config.PIDFile, &config.LogFile, &config.MetadataProxySocket} {
		if *path == "" {
			continue
		}
		absolute, err := filepath.Abs(*path)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", *path, err)
		}
		*path = absolute
	}
	return nil
}

// detachedArgs returns the detached child's arguments: the caller's
// arguments followed by the resolved path options and context ids.
// Later flags win, so the child sees absolute paths, and its command
// line names the instance id that pidfile.IsRunning looks for even when
// the ids came from the config file.
func detachedArgs(args []string, config proxy.Config, opts options) []string {
	flagArgs, rest := args, []string(nil)
	if terminator := slices.Index(args, "--"); terminator >= 0 {
		flagArgs, rest = args[:terminator], args[terminator:]
	}
	child := slices.Clone(flagArgs)
	overrides := []struct{ flag, value string }{
		{"config", opts.configPath},
		{"pid-file", config.PIDFile},
		{"log-file", config.LogFile},
		{"metadata-proxy-socket", config.MetadataProxySocket},
		{"domain-id", config.DomainID},
		{"network-id", config.NetworkID},
		{"router-id", config.RouterID},
	}
	for _, override := range overrides {
		if override.value != "" {
			child = append(child, "--"+override.flag+"="+override.value)
		}
	}
	return append(child, rest...)
}

// serve runs the proxy until a shutdown signal or a listener failure.
func serve(config proxy.Config, proxyContext proxy.Context, logger *slog.Logger) error {
	client, err := proxy.NewUnixClient(proxy.UnixClientConfig{
		SocketPath:     config.MetadataProxySocket,
		ConnectTimeout: config.ConnectTimeout,
		RequestTimeout: config.RequestTimeout,
	})
	if err != nil {
		return err
	}

	handler, err := proxy.NewHandler(proxy.HandlerConfig{
		Context:  proxyContext,
		Resolver: &proxy.FileResolver{Path: proxy.DefaultMappingPath, Logger: logger},
		Client:   client,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	server, err := proxy.NewServer(proxy.ServerConfig{
		Address: config.ListenAddress(),
		Handler: handler,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Wait() }()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-serveDone:
		if err == nil {
			err = errors.New("listener closed")
		}
		return fmt.Errorf("metadata server stopped: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// logConfig records the effective option values at startup.
func logConfig(logger *slog.Logger, config proxy.Config, proxyContext proxy.Context) {
	logger.Info("loaded configuration",
		"context", proxyContext.String(),
		"network_id", config.NetworkID,
		"router_id", config.RouterID,
		"domain_id", config.DomainID,
		"pid_file", config.PIDFile,
		"daemonize", config.Daemonize,
		"metadata_host", config.MetadataHost,
		"metadata_port", config.MetadataPort,
		"metadata_proxy_socket", config.MetadataProxySocket,
		"connect_timeout", config.ConnectTimeout,
		"request_timeout", config.RequestTimeout,
		"log_file", config.LogFile,
	)
}
