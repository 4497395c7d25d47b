package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adiaconou/hermes/internal/agentregistry"
	"github.com/adiaconou/hermes/internal/app"
	"github.com/adiaconou/hermes/internal/convwindow"
	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/gateway"
	"github.com/adiaconou/hermes/internal/governance"
	"github.com/adiaconou/hermes/internal/inbox"
	"github.com/adiaconou/hermes/internal/jobrunner"
	"github.com/adiaconou/hermes/internal/observability"
	"github.com/adiaconou/hermes/internal/orchestrator"
	"github.com/adiaconou/hermes/internal/planner"
	"github.com/adiaconou/hermes/internal/promptfiles"
	"github.com/adiaconou/hermes/internal/replanner"
	"github.com/adiaconou/hermes/internal/skillregistry"
	"github.com/adiaconou/hermes/internal/stepexec"
	"github.com/adiaconou/hermes/internal/store"
	"github.com/adiaconou/hermes/internal/toolsurface"
	"github.com/adiaconou/hermes/internal/tools"
	"github.com/adiaconou/hermes/internal/watcher"
	"github.com/adiaconou/hermes/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const generalAgentPrompt = `You are the assistant's general-purpose agent: the fallback target for any step the planner could not route to a more specific agent or skill. Use the available tools to carry out the task and answer directly once you have what you need.`

// readOnlyToolNames is the subset of tools the Scheduled-Job Runner allows,
// excluding anything that writes (filesystem, schedule_task) since a fired
// job should never reschedule or mutate state, per the teacher's own
// CronTool having no write access to begin with.
var readOnlyToolNames = []string{"search", "scraper", "recall_memory", "browser"}

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig("config.json")
	logger := observability.NewLogger()

	db, err := store.Open(cfg.Store.DSN)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}

	conversations := store.NewConversationStore(db)
	users := store.NewUserConfigStore(db)
	credentials := store.NewCredentialStore(db)
	memory := store.NewMemoryStore(db)
	jobs := store.NewJobStore(db)

	registry := toolsurface.NewRegistry()
	registry.Register(tools.NewFilesystemTool(cfg.App.Workspace))
	registry.Register(tools.NewScraperTool())
	registry.Register(tools.NewBrowserTool())
	registry.Register(tools.NewMemoryTool(memory))
	registry.Register(tools.NewScheduleTool(jobs))
	if searchTool, err := tools.NewSearchTool(); err != nil {
		logger.Warnf("main: search tool unavailable: %v", err)
	} else {
		registry.Register(searchTool)
	}

	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("no enabled provider found in config")
	}

	var llm llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	surface := toolsurface.New(llm, registry)

	gov := governance.NewDefaultPolicyEngine()
	_ = gov.DenyArguments(`rm\s+-rf`)
	_ = gov.DenyArguments(`mkfs`)
	_ = gov.DenyArguments(`shutdown`)
	_ = gov.DenyArguments(`reboot`)

	agentPrompt := generalAgentPrompt
	if loaded, err := promptfiles.NewLoader("./prompts").Load(); err != nil {
		logger.Warnf("main: falling back to the built-in general-agent prompt: %v", err)
	} else {
		agentPrompt = loaded
	}

	agents := agentregistry.New([]agentregistry.Record{
		{
			Capability: core.AgentCapability{
				Name:        agentregistry.FallbackAgentName,
				Description: "General-purpose agent for requests that don't fit a more specific agent or skill.",
				Tools:       []string{"*"},
			},
			Executor: func(ctx context.Context, task string, ectx core.ExecutionContext) core.StepResult {
				return surface.Execute(ctx, agentPrompt, task, []string{"*"}, ectx)
			},
		},
	})

	skills, loadErrs := skillregistry.Load(skillRoot(cfg.Skills.Roots, 0), skillRoot(cfg.Skills.Roots, 1), skillregistry.Limits{ConfidenceThreshold: cfg.Skills.ConfidenceThreshold})
	for _, e := range loadErrs {
		logger.Warnf("main: skill load error in %s: %s", e.Path, e.Reason)
	}

	pl := planner.New(llm, agents, skills, planner.Limits{})
	rp := replanner.New(llm, agents, replanner.Limits{})
	se := stepexec.New(agents, skills, surface, gov, time.Second)
	orch := orchestrator.New(pl, rp, se, orchestrator.Limits{})

	router := gateway.NewRouter()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var messengers []gateway.Messenger

	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		dispatcher := newDispatcher(orch, conversations, users, memory, core.ChannelTelegram, logger)
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, dispatcher, logger)
		if err != nil {
			log.Fatalf("starting telegram gateway: %v", err)
		}
		router.Register(core.ChannelTelegram, tg)
		messengers = append(messengers, tg)
	}

	if dcCfg, ok := cfg.GetDiscordConfig(); ok {
		dispatcher := newDispatcher(orch, conversations, users, memory, core.ChannelDiscord, logger)
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, dispatcher, logger)
		if err != nil {
			log.Fatalf("starting discord gateway: %v", err)
		}
		router.Register(core.ChannelDiscord, dc)
		messengers = append(messengers, dc)
	}

	if len(messengers) == 0 {
		log.Fatal("no gateway is enabled in config.json")
	}

	for _, m := range messengers {
		m := m
		go func() {
			if err := m.Start(ctx); err != nil {
				logger.Errorf("main: gateway stopped: %v", err)
				stop()
			}
		}()
	}

	runner := jobrunner.New(jobs, surface, readOnlyToolNames, router, logger, cfg.JobRunner.Interval(jobrunner.DefaultInterval))
	runner.Start(ctx)

	if cfg.Watcher.SyncBaseURL != "" {
		sync := inbox.NewHTTPSyncSource(credentials, cfg.Watcher.SyncProvider, cfg.Watcher.SyncBaseURL)
		w := watcher.New(users, sync, skills, surface, router, logger, cfg.Watcher.Interval(watcher.DefaultInterval), cfg.Watcher.MaxNotificationsPerHour)
		w.Start(ctx)
	}

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
			}
		}
	}()

	<-ctx.Done()

	for _, m := range messengers {
		if err := m.Stop(); err != nil {
			logger.Errorf("main: stopping gateway: %v", err)
		}
	}
	runner.Stop()

	observability.CleanupTerminal()
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}

func newDispatcher(orch *orchestrator.Orchestrator, conversations *store.ConversationStore, users *store.UserConfigStore, memory *store.MemoryStore, channel core.Channel, logger core.Logger) *app.Dispatcher {
	return &app.Dispatcher{
		Orchestrator: orch,
		Conversation: conversations,
		Users:        users,
		Memory:       memory,
		Channel:      channel,
		Logger:       logger,
		WindowLimits: convwindow.DefaultLimits,
	}
}

func skillRoot(roots []string, index int) string {
	if index >= len(roots) {
		return ""
	}
	return roots[index]
}
