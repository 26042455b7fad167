package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"finquery/internal/ai"
	appsvc "finquery/internal/app"
	"finquery/internal/bootstrap"
	"finquery/internal/cache"
	"finquery/internal/index"
	"finquery/internal/platform/rabbitmq"
	"finquery/internal/repository"
	"finquery/internal/transport/http/handler"
	"finquery/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	convRepo := repository.NewConversationRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	docRepo := repository.NewDocumentRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)

	indexes := index.NewManager(func(conversationID uint) ([]index.Entry, error) {
		chunks, err := chunkRepo.ListByConversationID(conversationID)
		if err != nil {
			return nil, err
		}
		entries := make([]index.Entry, 0, len(chunks))
		for i := range chunks {
			entries = append(entries, index.Entry{
				ChunkID: chunks[i].ID,
				Content: chunks[i].Content,
				Vector:  chunks[i].EmbeddingVector(),
			})
		}
		return entries, nil
	})
	locks := appsvc.NewConversationLocks()

	aiClient := ai.NewOpenAICompatibleClient()
	chatCfg := ai.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	}
	embCfg := ai.EmbeddingConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.EmbeddingModel,
	}

	turnPublisher := rabbitmq.NewTurnPublisher(app.MQConn, app.Config.RabbitMQ.TurnPersistQueue)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	ingestService := appsvc.NewIngestService(
		convRepo,
		docRepo,
		chunkRepo,
		aiClient,
		embCfg,
		appsvc.IngestConfig{
			ChunkSize:      app.Config.Ingest.ChunkSize,
			ChunkOverlap:   app.Config.Ingest.ChunkOverlap,
			EmbedBatchSize: app.Config.Ingest.EmbedBatchSize,
		},
		indexes,
		locks,
		app.Logger,
	)
	answerService := appsvc.NewAnswerService(
		convRepo,
		messageRepo,
		docRepo,
		chunkRepo,
		turnPublisher,
		historyCache,
		aiClient,
		aiClient,
		appsvc.AnswerConfig{
			Chat:               chatCfg,
			Embedding:          embCfg,
			DefaultTemperature: app.Config.LLM.DefaultTemperature,
			MaxContextMessage:  app.Config.LLM.MaxContextMessage,
			TopK:               app.Config.LLM.TopK,
		},
		indexes,
		locks,
		app.Logger,
	)

	authHandler := handler.NewAuthHandler(authService)
	qaHandler := handler.NewQAHandler(ingestService, answerService, app.Config.Ingest.MaxPDFSizeMB)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	qaGroup := v1.Group("/qa")
	qaGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	qaGroup.POST("/conversations", qaHandler.CreateConversation)
	qaGroup.GET("/conversations", qaHandler.ListConversations)
	qaGroup.DELETE("/conversations/:id", qaHandler.DeleteConversation)
	qaGroup.POST("/conversations/:id/documents", qaHandler.UploadDocuments)
	qaGroup.GET("/conversations/:id/documents", qaHandler.ListDocuments)
	qaGroup.DELETE("/documents/:id", qaHandler.DeleteDocument)
	qaGroup.POST("/ask", qaHandler.Ask)
	qaGroup.POST("/ask/stream", qaHandler.AskStream)
	qaGroup.GET("/history", qaHandler.GetHistory)

	return router
}
