package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/volcengine/veadk-go/apps"
	"github.com/volcengine/veadk-go/apps/a2a_app"
	"google.golang.org/adk/agent"

	"github.com/zhengjr9/gemini-gateway/internal/a2a"
	"github.com/zhengjr9/gemini-gateway/internal/config"
	"github.com/zhengjr9/gemini-gateway/internal/logging"
	"github.com/zhengjr9/gemini-gateway/internal/proxy"
)

type flags struct {
	configPath     string
	envFile        string
	listenAddr     string
	allowedOrigins string
	model          string
	requestTimeout time.Duration
	logLevel       string
	a2aEnabled     bool
	a2aPort        int
	agentName      string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "gemini-gateway",
		Short:         "Stateless HTTP gateway in front of the Gemini generateContent API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			if err := run(cfg); err != nil {
				log.WithError(err).Error("server exited")
				return err
			}
			return nil
		},
	}
	bindFlags(cmd.Flags(), &f)
	return cmd
}

func bindFlags(fl *pflag.FlagSet, f *flags) {
	fl.StringVar(&f.configPath, "config", os.Getenv("GATEWAY_CONFIG"), "TOML config file path")
	fl.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	fl.StringVar(&f.listenAddr, "listen-addr", "", "Override listen address (e.g. :8080)")
	fl.StringVar(&f.allowedOrigins, "allowed-origins", "", "Override the comma-separated CORS allow-list")
	fl.StringVar(&f.model, "model", "", "Override the default Gemini model")
	fl.DurationVar(&f.requestTimeout, "request-timeout", 0, "Override the upstream request timeout")
	fl.StringVar(&f.logLevel, "log-level", "", "Override the log level")
	fl.BoolVar(&f.a2aEnabled, "a2a", false, "Also serve the pipeline over the A2A protocol")
	fl.IntVar(&f.a2aPort, "a2a-port", 0, "Override the A2A listen port")
	fl.StringVar(&f.agentName, "agent-name", "", "Override the A2A agent name")
}

// loadConfig layers defaults, TOML, dotenv/environment and finally the
// flags the caller set explicitly.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("listen-addr") {
		cfg.ListenAddr = f.listenAddr
	}
	if changed("allowed-origins") {
		cfg.AllowedOrigins = config.SplitList(f.allowedOrigins)
	}
	if changed("model") {
		cfg.Model = f.model
	}
	if changed("request-timeout") {
		cfg.RequestTimeout = f.requestTimeout
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("a2a") {
		cfg.A2AEnabled = f.a2aEnabled
	}
	if changed("a2a-port") {
		cfg.A2APort = f.a2aPort
	}
	if changed("agent-name") {
		cfg.AgentName = f.agentName
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.Config) error {
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"listen":      cfg.ListenAddr,
		"path":        cfg.Path,
		"model":       cfg.Model,
		"origins":     cfg.AllowedOrigins,
		"has_key":     cfg.APIKey != "",
		"a2a_enabled": cfg.A2AEnabled,
	}).Info("starting gemini-gateway")
	if cfg.APIKey == "" {
		log.Warn("GEMINI_API_KEY is not set; POST requests will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := proxy.New(cfg)
	if err != nil {
		return err
	}
	proxyErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			proxyErr <- err
		}
	}()

	a2aErr := make(chan error, 1)
	if cfg.A2AEnabled {
		gwAgent, err := a2a.New(a2a.AgentConfig{
			Name:        cfg.AgentName,
			Description: cfg.AgentDesc,
			Pipeline:    srv.Service(),
		})
		if err != nil {
			return fmt.Errorf("create A2A agent: %w", err)
		}

		log.WithFields(log.Fields{"port": cfg.A2APort, "agent_name": cfg.AgentName}).Info("starting A2A server")

		inner := a2a_app.NewAgentkitA2AServerApp(
			apps.DefaultApiConfig().SetPort(cfg.A2APort),
		)
		wrapped := &requestIDApp{BasicApp: inner}

		go func() {
			if err := wrapped.Run(ctx, &apps.RunConfig{
				AgentLoader: agent.NewSingleLoader(gwAgent),
			}); err != nil {
				a2aErr <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.WithError(err).Error("proxy shutdown error")
		}
	case err := <-proxyErr:
		return fmt.Errorf("proxy server: %w", err)
	case err := <-a2aErr:
		return fmt.Errorf("A2A server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
