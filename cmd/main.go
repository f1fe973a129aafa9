package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"MapMarkr-App/internal/config"
	"MapMarkr-App/internal/handler"
	"MapMarkr-App/internal/infrastructure/database"
	"MapMarkr-App/internal/infrastructure/firestore"
	"MapMarkr-App/internal/infrastructure/store"
	"MapMarkr-App/internal/repository"
	"MapMarkr-App/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	ctx := context.Background()
	client, cleanup, err := newStoreClient(ctx, cfg)
	if err != nil {
		log.Fatalf("ストアバックエンドの初期化に失敗: %v", err)
	}
	defer cleanup()
	fmt.Printf("✅ Store backend ready: %s (collection=%s)\n", cfg.StoreDriver, cfg.Collection)

	featuresRepo := repository.NewStoreFeaturesRepository(client, cfg.FetchLimit)
	featuresUseCase := usecase.NewFeaturesUseCase(featuresRepo, cfg.DefaultPageLimit)
	featuresHandler := handler.NewFeaturesHandler(featuresUseCase)

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "MapMarkr-App"})
	})

	features := r.Group("/features")
	{
		features.POST("", featuresHandler.CreateFeature)
		features.GET("", featuresHandler.ListFeatures)
		features.GET("/page", featuresHandler.PageFeatures)
		features.POST("/bulk", featuresHandler.CreateFeatures)
		features.GET("/:id", featuresHandler.GetFeature)
		features.PUT("/:id", featuresHandler.UpdateFeature)
		features.DELETE("/:id", featuresHandler.DeleteFeature)
	}

	fmt.Printf("MapMarkr-App server starting on :%s...\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("サーバーの起動に失敗: %v", err)
	}
}

// newStoreClient 設定に応じたストアバックエンドを構築する
func newStoreClient(ctx context.Context, cfg *config.Config) (store.Client, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverFirestore:
		fmt.Println("Initializing Firestore client...")
		client, err := firestore.NewFirestoreClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("Firestoreクライアント初期化失敗: %w", err)
		}
		return firestore.NewStore(client.GetClient(), cfg.Collection), func() { client.Close() }, nil

	case config.DriverPostgres:
		fmt.Println("Initializing PostgreSQL client...")
		client, err := database.NewPostgreSQLClient(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("PostgreSQLクライアント初期化失敗: %w", err)
		}
		st, err := database.NewPostgresStore(client, cfg.Collection)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return st, func() { client.Close() }, nil

	case config.DriverSupabase:
		fmt.Println("Initializing Supabase client...")
		client, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			return nil, nil, fmt.Errorf("Supabaseクライアント初期化失敗: %w", err)
		}
		if err := client.HealthCheck(); err != nil {
			return nil, nil, fmt.Errorf("Supabaseヘルスチェック失敗: %w", err)
		}
		return database.NewSupabaseStore(client, cfg.Collection), func() {}, nil

	case config.DriverMemory:
		fmt.Println("⚠️  Using in-memory store: data will be lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("未知のストアドライバ: %s", cfg.StoreDriver)
}
