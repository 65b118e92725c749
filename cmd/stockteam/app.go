package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stockteam/internal/agentsvc"
	"stockteam/internal/analysis"
	"stockteam/internal/config"
	"stockteam/internal/db"
	"stockteam/internal/history"
	"stockteam/internal/llm"
	"stockteam/internal/localsvc"
	"stockteam/internal/research"
	"stockteam/internal/trace"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// app holds the wiring shared by the subcommands.
type app struct {
	cfg        *config.Config
	provider   llm.Provider
	researcher *research.Researcher
	database   *db.DB
	store      *history.Store

	closers []func(context.Context) error
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// newApp loads config and builds the model provider and research backend.
// withHistory also opens the run database.
func newApp(ctx context.Context, withHistory bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a := &app{cfg: cfg}

	if cfg.Trace.Enabled {
		shutdown, err := trace.Init(ctx, trace.Config{
			Endpoint:    cfg.Trace.Endpoint,
			URLPath:     cfg.Trace.URLPath,
			APIKey:      cfg.Trace.APIKey,
			Insecure:    cfg.Trace.Insecure,
			SampleRatio: cfg.Trace.SampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}
		a.closers = append(a.closers, shutdown)
		slog.Info("tracing enabled", "endpoint", cfg.Trace.Endpoint)
	}

	var cred azcore.TokenCredential
	credential := func() (azcore.TokenCredential, error) {
		if cred != nil {
			return cred, nil
		}
		c, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azure credential: %w", err)
		}
		cred = c
		return cred, nil
	}

	a.provider, err = buildProvider(cfg.Model, credential)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	svc, connectionID, err := buildAgentService(ctx, cfg, a.provider, credential)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.researcher = research.New(svc, cfg.Model.Deployment, connectionID,
		research.WithTimeout(cfg.Research.Timeout.Duration),
		research.WithCleanupTimeout(cfg.Research.CleanupTimeout.Duration))

	if withHistory {
		if err := a.openHistory(); err != nil {
			a.close(ctx)
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openHistory() error {
	database, err := db.Open(a.cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return fmt.Errorf("migrating database: %w", err)
	}
	a.database = database
	a.store = history.NewStore(database)
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.database != nil {
		a.database.Close()
	}
	for _, c := range a.closers {
		if err := c(ctx); err != nil {
			slog.Warn("shutdown", "error", err)
		}
	}
}

func buildProvider(mc config.ModelConfig, credential func() (azcore.TokenCredential, error)) (llm.Provider, error) {
	if mc.Deployment == "" {
		return nil, errors.New("model deployment is not set (MODEL_DEPLOYMENT_NAME)")
	}
	if mc.Endpoint == "" {
		return llm.NewOpenAI(mc.BaseURL, mc.APIKey, mc.Deployment), nil
	}

	var cred azcore.TokenCredential
	if mc.APIKey == "" {
		c, err := credential()
		if err != nil {
			return nil, err
		}
		cred = c
	}
	return llm.NewAzure(mc.Endpoint, mc.APIVersion, mc.Deployment, mc.APIKey, cred), nil
}

// buildAgentService returns the research backend and the grounding
// connection ID its agents should use.
func buildAgentService(ctx context.Context, cfg *config.Config, provider llm.Provider, credential func() (azcore.TokenCredential, error)) (agentsvc.Service, string, error) {
	switch cfg.Research.Backend {
	case config.BackendLocal:
		if cfg.Services.Brave.APIKey == "" {
			slog.Warn("research without web grounding, BRAVE_API_KEY is not set")
			return localsvc.New(provider), "", nil
		}
		svc, err := localsvc.NewWebGrounded(provider, cfg.Services.Brave.APIKey)
		if err != nil {
			return nil, "", err
		}
		return svc, "web", nil

	default:
		if cfg.Project.ConnectionString == "" {
			return nil, "", errors.New("project connection string is not set (PROJECT_CONNECTION_STRING)")
		}
		cred, err := credential()
		if err != nil {
			return nil, "", err
		}
		client, err := agentsvc.NewClientFromConnectionString(cfg.Project.ConnectionString, cred,
			agentsvc.WithAPIVersion(cfg.Project.APIVersion),
			agentsvc.WithConnectionAPIVersion(cfg.Project.ConnectionVersion),
			agentsvc.WithPollInterval(cfg.Research.PollInterval.Duration),
		)
		if err != nil {
			return nil, "", fmt.Errorf("agent service: %w", err)
		}

		if cfg.Project.BingConnection == "" {
			slog.Warn("research without web grounding, BING_CONNECTION_NAME is not set")
			return client, "", nil
		}
		conn, err := client.GetConnection(ctx, cfg.Project.BingConnection)
		if err != nil {
			return nil, "", fmt.Errorf("resolving grounding connection: %w", err)
		}
		slog.Debug("grounding connection resolved", "name", conn.Name, "id", conn.ID)
		return client, conn.ID, nil
	}
}

// analysisService assembles the configured team.
func (a *app) analysisService() (*analysis.Service, error) {
	profiles, err := analysis.MergeProfiles(analysis.DefaultProfiles(), a.cfg.Agents)
	if err != nil {
		return nil, err
	}
	tm, err := analysis.NewTeam(a.provider, analysis.ResearchTools(a.researcher), profiles, a.cfg.Team)
	if err != nil {
		return nil, err
	}
	return analysis.NewService(tm, a.store, a.cfg.Team.Stock), nil
}
