package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"dockagent/internal/analysis"
	"dockagent/internal/config"
	"dockagent/internal/conversation"
	"dockagent/internal/crawler"
	"dockagent/internal/extractor"
	"dockagent/internal/git"
	"dockagent/internal/logging"
	"dockagent/internal/policy"
	"dockagent/internal/report"
	"dockagent/internal/storage"

	"go.uber.org/zap"
)

// loadConfig reads the config file and builds the logger.
func loadConfig() (*config.Config, *zap.Logger) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if reportPath != "" {
		cfg.Output.Report = reportPath
	}
	if dbPath != "" {
		cfg.Output.HistoryDB = dbPath
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.JSON)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, logger
}

// newOrchestrator wires scanner, extractor and analyzer from cfg.
func newOrchestrator(cfg *config.Config, logger *zap.Logger) (*conversation.Orchestrator, error) {
	eco := analysis.Python()

	timeout, err := cfg.ParseTimeout()
	if err != nil {
		return nil, err
	}
	ext, err := extractor.NewExtractor(eco.Language, extractor.Options{
		Constructors: eco.Constructors(),
		MaxFileBytes: int(cfg.Scan.MaxFileBytes),
		ParseTimeout: timeout,
		CacheSize:    cfg.Analysis.CacheSize,
		Logger:       logger.Named("extractor"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	cr := crawler.NewCrawler(crawler.Options{
		IgnoredDirs:       cfg.Scan.IgnoredDirs,
		IgnoredExtensions: cfg.Scan.IgnoredExtensions,
		ConfigFiles:       cfg.Scan.ConfigFiles,
		SourceExtensions:  ext.Extensions(),
		MaxFileBytes:      cfg.Scan.MaxFileBytes,
		Workers:           cfg.Scan.Workers,
	}, logger.Named("crawler"))

	an := analysis.NewAnalyzer(eco, ext,
		analysis.WithPreferredDir(cfg.Analysis.PreferredDir),
		analysis.WithLogger(logger.Named("analysis")))

	return conversation.NewOrchestrator(cr, an, conversation.WithLogger(logger.Named("session"))), nil
}

// finishSession stamps the git revision, then writes the run report and the
// history entry when they are configured. Failures here never change the
// session outcome, so they are only logged.
func finishSession(ctx context.Context, cfg *config.Config, logger *zap.Logger, o *conversation.Orchestrator, action conversation.Action) {
	st := o.State()
	rep := o.Report()

	info, err := git.Describe(ctx, st.RepoPath)
	switch {
	case errors.Is(err, git.ErrNotRepository):
		logger.Debug("repository is not under git", zap.String("path", st.RepoPath))
	case err != nil:
		logger.Warn("failed to read git revision", zap.Error(err))
	}
	rep.Revision = info.Revision
	rep.Dirty = info.Dirty

	rec := storage.SessionRecord{
		ID:               st.SessionID,
		Repository:       rep.Repository,
		Revision:         info.Revision,
		Dirty:            info.Dirty,
		Action:           string(action),
		Confidence:       st.Confidence().String(),
		ConfidenceSource: st.ConfidenceSource(),
	}
	if snap, ok := st.Snapshot(); ok {
		rec.Snapshot = &snap
	}
	if out, ok := st.LastOutcome(); ok {
		rec.Status = out.Status
		rec.Reasons = out.Reasons
		rec.Dockerfile = out.Dockerfile
		if out.Review != nil {
			passed := out.Review.Passed
			rec.ReviewPassed = &passed
		}
	} else {
		rec.Status = string(action)
		rec.Reasons = refusalReasons(st, action)
		rep.SetOutcome(report.Outcome{
			Action:           string(action),
			Confidence:       rec.Confidence,
			ConfidenceSource: rec.ConfidenceSource,
			Reasons:          rec.Reasons,
		})
	}

	if cfg.Output.Report != "" {
		if err := rep.Save(cfg.Output.Report); err != nil {
			logger.Warn("failed to save run report", zap.String("path", cfg.Output.Report), zap.Error(err))
		} else {
			logger.Info("run report saved", zap.String("path", cfg.Output.Report))
		}
	}

	if cfg.Output.HistoryDB != "" {
		store, err := storage.NewSQLiteStore(cfg.Output.HistoryDB)
		if err != nil {
			logger.Warn("failed to open history database", zap.Error(err))
			return
		}
		defer store.Close()
		if err := store.SaveSession(ctx, rec); err != nil {
			logger.Warn("failed to record session", zap.Error(err))
		}
	}
}

// refusalReasons explains a REFUSED session with the gate's reasons.
func refusalReasons(st *conversation.State, action conversation.Action) []string {
	if action != conversation.ActionRefused {
		return nil
	}
	snap, ok := st.Snapshot()
	if !ok {
		return nil
	}
	return policy.Evaluate(snap, st.Answers()).Reasons
}
