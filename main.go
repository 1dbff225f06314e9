package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/config"
	"github.com/ekaya-inc/ekaya-erd/pkg/handlers"
	"github.com/ekaya-inc/ekaya-erd/pkg/logging"
	"github.com/ekaya-inc/ekaya-erd/pkg/mcp"
	"github.com/ekaya-inc/ekaya-erd/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-erd/pkg/middleware"
	"github.com/ekaya-inc/ekaya-erd/pkg/render"
	"github.com/ekaya-inc/ekaya-erd/pkg/services"
	"github.com/ekaya-inc/ekaya-erd/ui"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ekaya-erd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("base_url", cfg.BaseURL),
		zap.String("upload_dir", cfg.Storage.UploadDir),
		zap.String("output_dir", cfg.Storage.OutputDir),
		zap.String("dot_binary", cfg.Render.DotBinary),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled))

	workspace, err := services.NewWorkspace(cfg.Storage.UploadDir, cfg.Storage.OutputDir, cfg.Storage.MaxUploadBytes(), logger)
	if err != nil {
		return fmt.Errorf("failed to prepare workspace: %w", err)
	}

	renderer := render.NewDotRenderer(render.Config{
		Binary:  cfg.Render.DotBinary,
		Format:  cfg.Render.Format,
		Timeout: cfg.Render.Timeout,
	}, logger)
	if !renderer.Available() {
		logger.Warn("Graphviz binary not found; diagrams will report render errors",
			zap.String("binary", cfg.Render.DotBinary))
	}

	inference := services.NewSchemaInferenceService(services.SchemaInferenceConfig{
		IncludeEmptyTables: cfg.Inference.IncludeEmptyTables,
		ExtractionWorkers:  cfg.Inference.ExtractionWorkers,
	}, logger)
	diagrams := services.NewDiagramService(inference, renderer, workspace.OutputDir(), logger)

	expressions, err := services.NewExpressionServiceFromConfig(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to configure expression conversion: %w", err)
	}
	if expressions == nil {
		logger.Warn("No LLM model configured; expression conversion is disabled")
	}

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, renderer, logger).RegisterRoutes(mux)
	handlers.NewInferenceHandler(workspace, inference, diagrams, cfg.Storage.MaxUploadBytes(), logger).RegisterRoutes(mux)
	handlers.NewExpressionHandler(expressions, logger).RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer("ekaya-erd", cfg.Version, logger)
		tools.RegisterHealthTool(mcpServer.MCP(), tools.HealthToolDeps{
			Version:           cfg.Version,
			RendererAvailable: renderer.Available,
			LLMConfigured:     expressions != nil,
		})
		tools.RegisterSchemaTools(mcpServer.MCP(), &tools.SchemaToolDeps{
			Inference:     inference,
			Diagrams:      diagrams,
			DefaultDir:    workspace.UploadDir(),
			MaxSampleRows: cfg.Inference.MaxSampleRows,
			Logger:        logger,
		})
		if expressions != nil {
			tools.RegisterExpressionTools(mcpServer.MCP(), &tools.ExpressionToolDeps{
				Expressions:   expressions,
				SourceDialect: cfg.LLM.SourceDialect,
				TargetDialect: cfg.LLM.TargetDialect,
				Logger:        logger,
			})
		}
		handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)
	}

	// Serve the upload page from the embedded ui/dist
	mux.Handle("/", http.FileServerFS(ui.DistFS()))

	handler := middleware.Recover(logger)(middleware.RequestLogger(logger)(mux))
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Rendering and model calls run inside the request.
		WriteTimeout: cfg.Render.Timeout + cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-erd",
			zap.String("addr", server.Addr),
			zap.Bool("tls", cfg.TLSCertPath != ""))
		var err error
		if cfg.TLSCertPath != "" {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("Shutting down server gracefully", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
