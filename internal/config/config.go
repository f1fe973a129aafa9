package config

import (
	"fmt"
	"os"
	"strconv"
)

// ストアドライバの選択肢
const (
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	DriverSupabase  = "supabase"
	DriverMemory    = "memory"
)

// Config プロセス起動時に一度だけ構築するアプリケーション設定
// 以後は読み取り専用として参照で受け渡す（グローバルな参照はしない）
type Config struct {
	Port        string
	StoreDriver string

	// ストア設定
	Collection       string // コレクション名（Postgres/Supabaseではテーブル名）
	FetchLimit       int    // ストアへの1リクエストあたりのページサイズ上限
	DefaultPageLimit int    // ページネーションの既定limit

	// バックエンドごとの接続設定
	FirestoreProjectID string
	DatabaseURL        string
	SupabaseURL        string
	SupabaseAnonKey    string
}

// Load 環境変数からConfigを構築する
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getenv("PORT", "8080"),
		StoreDriver:        getenv("MAPMARKR_STORE_DRIVER", DriverFirestore),
		Collection:         getenv("MAPMARKR_COLLECTION", "geomarks"),
		FetchLimit:         getenvInt("MAPMARKR_FETCH_LIMIT", 25),
		DefaultPageLimit:   getenvInt("MAPMARKR_PAGE_LIMIT", 10),
		FirestoreProjectID: os.Getenv("FIRESTORE_PROJECT_ID"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:    os.Getenv("SUPABASE_ANON_KEY"),
	}

	switch cfg.StoreDriver {
	case DriverFirestore:
		if cfg.FirestoreProjectID == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT_ID環境変数が設定されていません")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL環境変数が設定されていません")
		}
	case DriverSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
			return nil, fmt.Errorf("SUPABASE_URLとSUPABASE_ANON_KEY環境変数が設定されていません")
		}
	case DriverMemory:
		// 追加の設定は不要
	default:
		return nil, fmt.Errorf("未知のストアドライバ: %s", cfg.StoreDriver)
	}

	if cfg.FetchLimit <= 0 {
		return nil, fmt.Errorf("MAPMARKR_FETCH_LIMITは正の値にしてください: %d", cfg.FetchLimit)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
