package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/priya/vachan/internal/agent"
	"github.com/priya/vachan/internal/gateway"
	"github.com/priya/vachan/internal/governance"
	"github.com/priya/vachan/internal/observability"
	"github.com/priya/vachan/internal/orchestrator"
	"github.com/priya/vachan/internal/store"
	"github.com/priya/vachan/internal/tools"
	"github.com/priya/vachan/pkg/config"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig("config.json")

	logger := observability.NewLogger()
	if cfg.App.LogDir != "" {
		logger = observability.NewFileLogger(cfg.App.LogDir)
	}

	db, err := store.New(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.App.Templates != "" {
		if err := db.SeedTemplates(cfg.App.Templates); err != nil {
			log.Printf("Warning: failed to seed templates: %v", err)
		}
	}

	// Register the promise-tracking capabilities.
	registry := tools.NewRegistry()
	registry.Register(tools.NewGetPromisesTool(db))
	registry.Register(tools.NewSearchPromisesTool(db))
	registry.Register(tools.NewAddPromiseTool(db))
	registry.Register(tools.NewUpdatePromiseTool(db))
	registry.Register(tools.NewDeletePromiseTool(db))
	registry.Register(tools.NewLogActionTool(db))
	registry.Register(tools.NewGetLatestActionTool(db))
	registry.Register(tools.NewListTemplatesTool(db))
	registry.Register(tools.NewSubscribeTemplateTool(db))
	registry.Register(tools.NewListFollowsTool(db))
	registry.Register(tools.NewAddReminderTool(db))

	gov := governance.NewDefaultPolicyEngine()
	// Defense in depth against prompt-injected SQL in tool arguments.
	_ = gov.DenyArguments(`(?i)drop\s+table`)
	_ = gov.DenyArguments(`(?i)delete\s+from`)

	promptsDir := cfg.App.Prompts
	if promptsDir == "" {
		promptsDir = "./prompts"
	}
	prompts := agent.NewPromptManager(promptsDir)

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var model llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	plannerPrompt, err := prompts.GetPlannerPrompt()
	if err != nil {
		log.Fatal(err)
	}
	responderPrompt, err := prompts.GetResponderPrompt()
	if err != nil {
		log.Fatal(err)
	}

	planner := &orchestrator.Planner{
		Model:        model,
		SystemPrompt: plannerPrompt,
		Registry:     registry,
		Log:          logger,
	}
	responder := &orchestrator.ModelResponder{
		Model:        model,
		SystemPrompt: responderPrompt,
		Log:          logger,
	}
	runner := &orchestrator.ToolRunner{
		Registry: registry,
		Policy:   gov,
		Log:      logger,
	}

	var router *orchestrator.Router
	if cfg.Orchestrator.UseRouter {
		routerPrompt, err := prompts.GetRouterPrompt()
		if err != nil {
			log.Fatal(err)
		}
		router = &orchestrator.Router{
			Model:        model,
			SystemPrompt: routerPrompt,
			Log:          logger,
		}
	}

	engine := orchestrator.NewEngine(planner, responder, registry, runner, router, logger, cfg.Orchestrator.EmitPlan)
	assistant := agent.NewAssistant(engine, db, cfg.Orchestrator.MaxIterations)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var primary gateway.Messenger
	if tgCfg, ok := cfg.GetGateway("telegram"); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, assistant)
		if err != nil {
			log.Fatal(err)
		}
		primary = tg
		go func() {
			if err := tg.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}()
	}
	if dcCfg, ok := cfg.GetGateway("discord"); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, assistant)
		if err != nil {
			log.Fatal(err)
		}
		if primary == nil {
			primary = dc
		}
		go func() {
			if err := dc.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}()
	}
	if primary == nil {
		log.Fatal("No gateway is enabled in config")
	}

	// Reminder scheduler
	scheduler := agent.NewScheduler(assistant, db, primary, logger)
	go scheduler.Start(ctx)

	// Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	<-ctx.Done()

	observability.CleanupTerminal()
	_ = db.Close()

	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}
