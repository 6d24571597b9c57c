package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"DialogHarness/internal/adapter/remote"
	"DialogHarness/internal/analyzer"
	"DialogHarness/internal/config"
	"DialogHarness/internal/dialog"
	"DialogHarness/internal/nlg/llm"
	"DialogHarness/internal/nlg/template"
	"DialogHarness/internal/nlu"
	"DialogHarness/internal/report"
	"DialogHarness/internal/user"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	// создаём регистратор zap: в режиме дебага — человекочитаемый
	var logger *zap.Logger
	if cfg.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("Starting end2end",
		"DebugMode", cfg.DebugMode,
		"service", cfg.ServiceURL,
		"seed", cfg.Seed,
		"dialogs", cfg.TotalDialogs,
		"nlg", cfg.NLGBackend,
	)

	// Каждый компонент получает свой генератор с общим зерном
	newRand := func() *rand.Rand { return rand.New(rand.NewSource(cfg.Seed)) }

	// системная NLG
	var sysNLG dialog.Generator
	switch cfg.NLGBackend {
	case config.BackendOpenAI:
		// использует переменные окружения, напр. OPENAI_API_KEY
		oClient := openai.NewClient()
		sysNLG = llm.New(&oClient, cfg.OpenAIModel, sugar)
	default:
		sysNLG, err = template.New(false, newRand(), template.WithTemplatesFile(cfg.NLGTemplatesPath))
		if err != nil {
			sugar.Errorw("failed to load system templates", "error", err)
			return
		}
	}
	sysAgent := remote.New(sysNLG, "sys", remote.WithEndpoint(cfg.ServiceURL), remote.WithLogger(sugar))

	// пользователь: NLU по репликам системы, без DST, политика на правилах, шаблонная NLG
	userNLU, err := nlu.New(nlu.ModeSystem)
	if err != nil {
		sugar.Errorw("failed to load user nlu", "error", err)
		return
	}
	goals, err := user.LoadGoalGenerator(newRand(), cfg.UserGoalsPath)
	if err != nil {
		sugar.Errorw("failed to load user goals", "error", err)
		return
	}
	userNLG, err := template.New(true, newRand(), template.WithTemplatesFile(cfg.NLGTemplatesPath))
	if err != nil {
		sugar.Errorw("failed to load user templates", "error", err)
		return
	}
	userAgent := user.NewPipeline(userNLU, nil, user.NewRulePolicy(goals), userNLG, "user", sugar)

	opts := []analyzer.Option{analyzer.WithLogger(sugar), analyzer.WithMaxTurns(cfg.MaxTurns)}
	if cfg.ReportDSN != "" {
		store, err := report.NewSQLiteStore(cfg.ReportDSN)
		if err != nil {
			sugar.Errorw("failed to open report store", "error", err)
			return
		}
		defer func() {
			if err := store.Close(); err != nil {
				sugar.Warnw("failed to close report store", "error", err)
			}
		}()
		opts = append(opts, analyzer.WithStore(store))
	}

	a := analyzer.New(userAgent, opts...)
	rep, err := a.ComprehensiveAnalyze(ctx, sysAgent, cfg.ModelName, cfg.TotalDialogs)
	if err != nil {
		sugar.Errorw("analysis failed", "error", err)
		return
	}
	sugar.Infow("Done", "run", rep.RunID, "success_rate", rep.SuccessRate)
}
