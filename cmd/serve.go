package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/labelfewer/internal/instrumentation"
	"github.com/teemow/labelfewer/internal/resources"
	"github.com/teemow/labelfewer/internal/server"
	"github.com/teemow/labelfewer/internal/tools/google_tools"
	"github.com/teemow/labelfewer/internal/tools/labeler_tools"
)

// MetricsConfig holds the metrics server settings for the serve command.
type MetricsConfig struct {
	// Enabled determines whether the Prometheus metrics server is started.
	Enabled bool

	// Addr is the address the metrics server binds to (e.g., ":9090").
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		yolo bool
		// Stack configuration
		dbPath            string
		embeddingProvider string
		llmProvider       string
		ollamaEndpoint    string
		scoreThreshold    float64
		// Metrics server configuration
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server over stdio to provide
Gmail labeling tools for AI assistants.

Safety Mode:
  By default, suggestions are only recorded in label memory. Use --yolo to
  let approved decisions actually create and apply Gmail labels.

OAuth Configuration:
  Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET in the environment, then use
  the google_get_auth_url and google_save_auth_code tools (or the auth
  subcommand) to store a token per account.

Backends:
  EMBEDDING_PROVIDER / LLM_PROVIDER select ollama (default) or genai.
  OLLAMA_ENDPOINT, EMBEDDING_MODEL, LLM_MODEL and GENAI_API_KEY configure
  the chosen backend. Without a reachable embedding backend a deterministic
  fallback keeps classification working.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadStackConfig()
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("embedding-provider") {
				cfg.EmbeddingProvider = embeddingProvider
			}
			if cmd.Flags().Changed("llm-provider") {
				cfg.LLMProvider = llmProvider
			}
			if cmd.Flags().Changed("ollama-endpoint") {
				cfg.OllamaEndpoint = ollamaEndpoint
			}
			if cmd.Flags().Changed("threshold") {
				cfg.ScoreThreshold = scoreThreshold
			}

			return runServe(cfg, yolo, MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			})
		},
	}

	cmd.Flags().BoolVar(&yolo, "yolo", false,
		"Enable write operations (create and apply Gmail labels on approval)")
	cmd.Flags().StringVar(&dbPath, "db", "",
		"Path to the label memory database (default: user cache dir, or LABELFEWER_DB_PATH)")
	cmd.Flags().StringVar(&embeddingProvider, "embedding-provider", "",
		"Embedding backend: ollama, genai or none (default: ollama, or EMBEDDING_PROVIDER)")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "",
		"LLM backend: ollama, genai or none (default: ollama, or LLM_PROVIDER)")
	cmd.Flags().StringVar(&ollamaEndpoint, "ollama-endpoint", "",
		"Ollama server endpoint (default: http://localhost:11434, or OLLAMA_ENDPOINT)")
	cmd.Flags().Float64Var(&scoreThreshold, "threshold", 0,
		"Minimum centroid similarity for a memory-only suggestion (default: 0.40, or SCORE_THRESHOLD)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", false,
		"Enable the Prometheus metrics server (or METRICS_ENABLED=true)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr,
		"Address for the Prometheus metrics server (or METRICS_ADDR)")

	return cmd
}

func runServe(cfg stackConfig, yolo bool, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load metrics config from environment if not set via flags
	if !metricsConfig.Enabled {
		if os.Getenv("METRICS_ENABLED") == "true" {
			metricsConfig.Enabled = true
		}
	}
	if metricsConfig.Addr == "" || metricsConfig.Addr == server.DefaultMetricsAddr {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			metricsConfig.Addr = addr
		}
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			// stdio transport: stdout belongs to the protocol
			fmt.Fprintf(os.Stderr, "Error during instrumentation shutdown: %v\n", err)
		}
	}()

	// Build the classification stack before accepting tool calls; a broken
	// database or backend config should fail startup, not the first call.
	stk, err := buildStack(cfg, provider.Metrics())
	if err != nil {
		return err
	}
	defer func() {
		if err := stk.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing label memory: %v\n", err)
		}
	}()

	serverContext, err := server.NewServerContext(shutdownCtx, server.Options{
		Store:       stk.Store,
		Resolver:    stk.Resolver,
		ApplyLabels: yolo,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during server context shutdown: %v\n", err)
		}
	}()

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAudit(instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging))
	}

	// Start metrics server if enabled. It runs on its own port, so it is
	// safe alongside the stdio transport.
	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
			HealthChecker:           server.NewHealthChecker(serverContext),
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		// Wait for metrics server to be ready or fail
		select {
		case <-metricsReady:
			log.Printf("Metrics server started on %s", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during metrics server shutdown: %v\n", err)
			}
		}()
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("labelfewer", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	// Register all tools and resources
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	return runStdioServer(mcpSrv)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Labeler",
			register: func() error {
				return labeler_tools.RegisterLabelerTools(mcpSrv, ctx)
			},
		},
		{
			name: "Google Auth",
			register: func() error {
				return google_tools.RegisterGoogleTools(mcpSrv, ctx)
			},
		},
		{
			name: "Memory Resources",
			register: func() error {
				return resources.RegisterMemoryResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
