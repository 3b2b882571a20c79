// Package mcp exposes the annotator as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/mvp-joe/docfill/internal/config"
	"github.com/mvp-joe/docfill/internal/discovery"
	"github.com/mvp-joe/docfill/internal/runner"
)

// ServerConfig configures NewServer.
type ServerConfig struct {
	ProjectRoot string
	Config      *config.Config // nil means config.Default()
	Version     string
	Logger      *zap.SugaredLogger
}

// Server manages the MCP server lifecycle.
type Server struct {
	project *project
	log     *zap.SugaredLogger
	mcp     *server.MCPServer
}

// NewServer creates an MCP server with the docfill tools registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	fd, err := discovery.NewFileDiscovery(root, cfg.Config.Paths.Include, cfg.Config.Paths.Ignore, cfg.Config.Paths.ExcludeDirs)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	p := &project{
		root:      fd.RootDir(),
		discovery: fd,
		runner:    runner.New(runner.Options{Workers: 1, Logger: log}),
	}

	mcpServer := server.NewMCPServer(
		"docfill-mcp",
		cfg.Version,
		server.WithToolCapabilities(true),
	)
	AddAnnotateTool(mcpServer, p)
	AddCheckTool(mcpServer, p)

	return &Server{project: p, log: log, mcp: mcpServer}, nil
}

// Serve runs the server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("starting MCP server on stdio", "root", s.project.root)
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil // stdin closed
	}()

	select {
	case <-sigCh:
		s.log.Infow("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
