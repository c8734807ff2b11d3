package di

import (
	"context"
	"log"
	"net/http"
	"time"
	"tutor-ai/config"
	"tutor-ai/internal/apis/handlers"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/dispatch"
	"tutor-ai/internal/repositories"
	"tutor-ai/internal/scenario"
	"tutor-ai/internal/services"
	"tutor-ai/internal/utils"
	"tutor-ai/pkg/agentbackend"
	"tutor-ai/pkg/cache"
	"tutor-ai/pkg/database"
	"tutor-ai/pkg/llm"
	"tutor-ai/pkg/logger"
	"tutor-ai/pkg/mongodb"

	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	linkPreviewTimeout = 10 * time.Second
	linkPreviewRate    = 5
)

var DiContainer *dig.Container

func Initialize() {
	DiContainer = dig.New()

	// Initialize primary store
	db, err := database.Open(database.Config{
		Type:  config.Env.DatabaseType,
		DSN:   config.Env.DatabaseDSN,
		Debug: config.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to the primary database: %v", err)
	}

	// Initialize MongoDB
	mongodbClient, err := mongodb.InitializeDatabaseConnection(mongodb.MongoDbConfigModel{
		ConnectionUrl: config.Env.MongoURI,
		DatabaseName:  config.Env.MongoDatabaseName,
	})
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	// Initialize cache, falling back to process memory without redis
	var appCache cache.Cache
	redisClient, err := cache.RedisClient(config.Env.RedisHost, config.Env.RedisPort, config.Env.RedisUsername, config.Env.RedisPassword)
	if err != nil {
		logger.Named("di").Warn("redis unavailable, using in-memory cache", zap.Error(err))
		appCache = cache.NewMemory()
	} else {
		appCache = cache.NewRedis(redisClient, "tutor:")
	}

	jwtService := utils.NewJWTService(
		config.Env.JWTSecret,
		time.Minute*time.Duration(config.Env.JWTExpirationMinutes),
	)

	if err := DiContainer.Provide(func() *gorm.DB { return db }); err != nil {
		log.Fatalf("Failed to provide database: %v", err)
	}

	if err := DiContainer.Provide(func() *mongodb.MongoDBClient { return mongodbClient }); err != nil {
		log.Fatalf("Failed to provide MongoDB client: %v", err)
	}

	if err := DiContainer.Provide(func() cache.Cache { return appCache }); err != nil {
		log.Fatalf("Failed to provide cache: %v", err)
	}

	if err := DiContainer.Provide(func() utils.JWTService { return jwtService }); err != nil {
		log.Fatalf("Failed to provide JWT service: %v", err)
	}

	if err := DiContainer.Provide(func() *agentbackend.Client {
		return agentbackend.NewClient(config.Env.AgentBackendURL, time.Second*time.Duration(config.Env.AgentBackendTimeoutSeconds))
	}); err != nil {
		log.Fatalf("Failed to provide agent backend client: %v", err)
	}

	provideRepositories()
	provideLLMManager()
	provideDispatch()
	provideServices()
	provideHandlers()
}

func provideRepositories() {
	if err := DiContainer.Provide(repositories.NewAgentRepository); err != nil {
		log.Fatalf("Failed to provide agent repository: %v", err)
	}
	if err := DiContainer.Provide(repositories.NewChatSessionRepository); err != nil {
		log.Fatalf("Failed to provide chat session repository: %v", err)
	}
	if err := DiContainer.Provide(repositories.NewNoteRepository); err != nil {
		log.Fatalf("Failed to provide note repository: %v", err)
	}
	if err := DiContainer.Provide(repositories.NewWorkspaceRepository); err != nil {
		log.Fatalf("Failed to provide workspace repository: %v", err)
	}
	if err := DiContainer.Provide(repositories.NewScenarioRepository); err != nil {
		log.Fatalf("Failed to provide scenario repository: %v", err)
	}
	if err := DiContainer.Provide(repositories.NewScenarioProgressRepository); err != nil {
		log.Fatalf("Failed to provide scenario progress repository: %v", err)
	}
	if err := DiContainer.Provide(repositories.NewFileMetadataRepository); err != nil {
		log.Fatalf("Failed to provide file metadata repository: %v", err)
	}
	if err := DiContainer.Provide(repositories.NewPreferencesRepository); err != nil {
		log.Fatalf("Failed to provide preferences repository: %v", err)
	}
}

func provideLLMManager() {
	if err := DiContainer.Provide(func() *llm.Manager {
		manager := llm.NewManager()

		if config.Env.OpenAIAPIKey != "" {
			err := manager.RegisterClient(constants.OpenAI, llm.Config{
				Provider:            constants.OpenAI,
				Model:               config.Env.OpenAIModel,
				APIKey:              config.Env.OpenAIAPIKey,
				MaxCompletionTokens: config.Env.OpenAIMaxCompletionTokens,
				Temperature:         config.Env.OpenAITemperature,
				SystemPrompt:        constants.ScenarioSystemPrompt,
				Schema:              constants.OpenAIScenarioResponseSchema,
			})
			if err != nil {
				logger.Named("di").Warn("failed to register OpenAI client", zap.Error(err))
			}
		}

		if config.Env.GeminiAPIKey != "" {
			err := manager.RegisterClient(constants.Gemini, llm.Config{
				Provider:            constants.Gemini,
				Model:               config.Env.GeminiModel,
				APIKey:              config.Env.GeminiAPIKey,
				MaxCompletionTokens: config.Env.GeminiMaxCompletionTokens,
				Temperature:         config.Env.GeminiTemperature,
				SystemPrompt:        constants.ScenarioSystemPrompt,
				Schema:              constants.GeminiScenarioResponseSchema,
			})
			if err != nil {
				logger.Named("di").Warn("failed to register Gemini client", zap.Error(err))
			}
		}
		return manager
	}); err != nil {
		log.Fatalf("Failed to provide LLM manager: %v", err)
	}
}

func provideDispatch() {
	if err := DiContainer.Provide(func() (*dispatch.Registry, error) {
		registry := dispatch.DefaultRegistry()
		known, err := dispatch.KnownTools()
		if err != nil {
			return nil, err
		}
		if err := registry.Validate(known); err != nil {
			return nil, err
		}
		return registry, nil
	}); err != nil {
		log.Fatalf("Failed to provide tool registry: %v", err)
	}

	if err := DiContainer.Provide(services.NewWorkspaceStore); err != nil {
		log.Fatalf("Failed to provide workspace store: %v", err)
	}

	if err := DiContainer.Provide(func(registry *dispatch.Registry, store *services.WorkspaceStore) *dispatch.Pool {
		return dispatch.NewPool(registry, store, store)
	}); err != nil {
		log.Fatalf("Failed to provide dispatcher pool: %v", err)
	}
}

func provideServices() {
	if err := DiContainer.Provide(services.NewAgentService); err != nil {
		log.Fatalf("Failed to provide agent service: %v", err)
	}

	if err := DiContainer.Provide(func(
		sessionRepo repositories.ChatSessionRepository,
		backend *agentbackend.Client,
		pool *dispatch.Pool,
		c cache.Cache,
	) services.ChatSessionService {
		return services.NewChatSessionService(sessionRepo, backend, pool, c, config.Env.DailyMessageLimit)
	}); err != nil {
		log.Fatalf("Failed to provide chat session service: %v", err)
	}

	// Scenario prompts are sent through the chat service
	if err := DiContainer.Provide(func(
		progressRepo *repositories.ScenarioProgressRepository,
		chatService services.ChatSessionService,
	) *scenario.Manager {
		return scenario.NewManager(progressRepo, services.NewScenarioChatTransport(chatService), scenario.Options{
			SaveDebounce: time.Millisecond * time.Duration(config.Env.ScenarioSaveDebounceMs),
			StepDelay:    time.Millisecond * time.Duration(config.Env.ScenarioStepDelayMs),
			SaveTimeout:  scenario.DefaultOptions().SaveTimeout,
		})
	}); err != nil {
		log.Fatalf("Failed to provide scenario manager: %v", err)
	}

	if err := DiContainer.Provide(func(
		scenarioRepo repositories.ScenarioRepository,
		trackers *scenario.Manager,
		llmManager *llm.Manager,
	) services.ScenarioService {
		return services.NewScenarioService(scenarioRepo, trackers, llmManager, config.Env.DefaultLLMClient)
	}); err != nil {
		log.Fatalf("Failed to provide scenario service: %v", err)
	}

	if err := DiContainer.Provide(func(noteRepo repositories.NoteRepository, pool *dispatch.Pool) services.NotesService {
		return services.NewNotesService(noteRepo, pool)
	}); err != nil {
		log.Fatalf("Failed to provide notes service: %v", err)
	}

	if err := DiContainer.Provide(func(
		sessionRepo repositories.ChatSessionRepository,
		pool *dispatch.Pool,
		scenarioService services.ScenarioService,
	) services.WorkspaceService {
		return services.NewWorkspaceService(sessionRepo, pool, scenarioService)
	}); err != nil {
		log.Fatalf("Failed to provide workspace service: %v", err)
	}

	if err := DiContainer.Provide(func(
		backend *agentbackend.Client,
		metaRepo repositories.FileMetadataRepository,
		prefsRepo repositories.PreferencesRepository,
	) services.FileService {
		return services.NewFileService(backend, metaRepo, prefsRepo)
	}); err != nil {
		log.Fatalf("Failed to provide file service: %v", err)
	}

	if err := DiContainer.Provide(func(c cache.Cache) services.LinkPreviewService {
		return services.NewLinkPreviewService(
			c,
			time.Minute*time.Duration(config.Env.LinkPreviewTTLMinutes),
			&http.Client{Timeout: linkPreviewTimeout},
			linkPreviewRate,
		)
	}); err != nil {
		log.Fatalf("Failed to provide link preview service: %v", err)
	}

	if err := DiContainer.Provide(services.NewLaunchService); err != nil {
		log.Fatalf("Failed to provide launch service: %v", err)
	}
}

func provideHandlers() {
	if err := DiContainer.Provide(handlers.NewAgentHandler); err != nil {
		log.Fatalf("Failed to provide agent handler: %v", err)
	}

	// The chat handler owns the SSE streams both services publish to
	if err := DiContainer.Provide(func(
		chatService services.ChatSessionService,
		scenarioService services.ScenarioService,
	) *handlers.ChatSessionHandler {
		handler := handlers.NewChatSessionHandler(chatService)
		chatService.SetStreamHandler(handler)
		scenarioService.SetStreamHandler(handler)
		return handler
	}); err != nil {
		log.Fatalf("Failed to provide chat session handler: %v", err)
	}

	if err := DiContainer.Provide(handlers.NewWorkspaceHandler); err != nil {
		log.Fatalf("Failed to provide workspace handler: %v", err)
	}
	if err := DiContainer.Provide(handlers.NewNotesHandler); err != nil {
		log.Fatalf("Failed to provide notes handler: %v", err)
	}
	if err := DiContainer.Provide(handlers.NewScenarioHandler); err != nil {
		log.Fatalf("Failed to provide scenario handler: %v", err)
	}
	if err := DiContainer.Provide(handlers.NewFileHandler); err != nil {
		log.Fatalf("Failed to provide file handler: %v", err)
	}
	if err := DiContainer.Provide(handlers.NewLinkHandler); err != nil {
		log.Fatalf("Failed to provide link handler: %v", err)
	}
}

// Shutdown flushes scenario progress, waits for running replies and closes the stores
func Shutdown(ctx context.Context) {
	log := logger.Named("di")
	err := DiContainer.Invoke(func(
		trackers *scenario.Manager,
		chatService services.ChatSessionService,
		mongodbClient *mongodb.MongoDBClient,
		db *gorm.DB,
	) {
		trackers.Close()

		done := make(chan struct{})
		go func() {
			chatService.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn("replies still running at shutdown")
		}

		if err := mongodbClient.Close(ctx); err != nil {
			log.Warn("failed to close MongoDB", zap.Error(err))
		}
		if err := database.Close(db); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	})
	if err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

// GetAgentHandler retrieves the AgentHandler from the DI container
func GetAgentHandler() (*handlers.AgentHandler, error) {
	var handler *handlers.AgentHandler
	err := DiContainer.Invoke(func(h *handlers.AgentHandler) {
		handler = h
	})
	return handler, err
}

// GetChatSessionHandler retrieves the ChatSessionHandler from the DI container
func GetChatSessionHandler() (*handlers.ChatSessionHandler, error) {
	var handler *handlers.ChatSessionHandler
	err := DiContainer.Invoke(func(h *handlers.ChatSessionHandler) {
		handler = h
	})
	return handler, err
}

func GetWorkspaceHandler() (*handlers.WorkspaceHandler, error) {
	var handler *handlers.WorkspaceHandler
	err := DiContainer.Invoke(func(h *handlers.WorkspaceHandler) {
		handler = h
	})
	return handler, err
}

func GetNotesHandler() (*handlers.NotesHandler, error) {
	var handler *handlers.NotesHandler
	err := DiContainer.Invoke(func(h *handlers.NotesHandler) {
		handler = h
	})
	return handler, err
}

func GetScenarioHandler() (*handlers.ScenarioHandler, error) {
	var handler *handlers.ScenarioHandler
	err := DiContainer.Invoke(func(h *handlers.ScenarioHandler) {
		handler = h
	})
	return handler, err
}

func GetFileHandler() (*handlers.FileHandler, error) {
	var handler *handlers.FileHandler
	err := DiContainer.Invoke(func(h *handlers.FileHandler) {
		handler = h
	})
	return handler, err
}

func GetLinkHandler() (*handlers.LinkHandler, error) {
	var handler *handlers.LinkHandler
	err := DiContainer.Invoke(func(h *handlers.LinkHandler) {
		handler = h
	})
	return handler, err
}
