package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"MapMarkr-App/internal/infrastructure/store"

	_ "github.com/lib/pq"
)

// PostgreSQLClient PostgreSQL直接接続クライアント
type PostgreSQLClient struct {
	DB *sql.DB
}

// NewPostgreSQLClient 新しいPostgreSQLクライアントを作成
func NewPostgreSQLClient(connStr string) (*PostgreSQLClient, error) {
	if connStr == "" {
		return nil, fmt.Errorf("DATABASE_URL環境変数が設定されていません")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQL接続の初期化に失敗: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("PostgreSQLへの接続に失敗: %w", err)
	}

	return &PostgreSQLClient{
		DB: db,
	}, nil
}

// Close データベース接続を閉じる
func (pc *PostgreSQLClient) Close() error {
	if pc.DB != nil {
		return pc.DB.Close()
	}
	return nil
}

// HealthCheck データベース接続のヘルスチェック
func (pc *PostgreSQLClient) HealthCheck() error {
	if pc.DB == nil {
		return fmt.Errorf("PostgreSQLクライアントが初期化されていません")
	}
	return pc.DB.Ping()
}

// defaultPageSize limit未指定のFetchで使う1ページの件数
const defaultPageSize = 25

// PostgresStore key/jsonbの2列のテーブルをドキュメントストア契約として公開する
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore テーブルが無ければ作成してPostgresStoreを構築する
func NewPostgresStore(client *PostgreSQLClient, table string) (*PostgresStore, error) {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, doc JSONB NOT NULL)`, table)
	if _, err := client.DB.Exec(ddl); err != nil {
		return nil, fmt.Errorf("ドキュメントテーブルの作成に失敗: %w", err)
	}
	return &PostgresStore{db: client.DB, table: table}, nil
}

// Put ドキュメント全体をUPSERTし、RETURNINGで保存後の状態を返す
func (s *PostgresStore) Put(ctx context.Context, doc store.Document) (store.Document, error) {
	key, ok := doc[store.KeyField].(string)
	if !ok || key == "" {
		return nil, fmt.Errorf("ドキュメントに%sフィールドがありません", store.KeyField)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントのJSONマーシャル失敗: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (key, doc) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc RETURNING doc`,
		s.table,
	)
	var echo []byte
	if err := s.db.QueryRowContext(ctx, query, key, raw).Scan(&echo); err != nil {
		return nil, fmt.Errorf("ドキュメントの保存に失敗: %w", err)
	}

	var stored store.Document
	if err := json.Unmarshal(echo, &stored); err != nil {
		return nil, fmt.Errorf("保存結果のJSONアンマーシャル失敗: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (store.Document, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE key = $1`, s.table)
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ドキュメントの取得に失敗: %w", err)
	}

	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ドキュメントのJSONアンマーシャル失敗: %w", err)
	}
	return doc, nil
}

// Delete 行を削除する。対象が存在しなくてもエラーにしない
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("ドキュメントの削除に失敗: %w", err)
	}
	return nil
}

// Fetch key昇順でクエリに一致する1ページ分を返す。カーソルは key > last
func (s *PostgresStore) Fetch(ctx context.Context, query store.Query, limit int, last string) (*store.Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	var where []string
	var args []any
	if last != "" {
		args = append(args, last)
		where = append(where, fmt.Sprintf("key > $%d", len(args)))
	}
	for path, value := range query {
		// ドット区切りのフィールドパスをjsonbのパス参照に変換する
		parts := strings.Split(path, ".")
		args = append(args, fmt.Sprintf("%v", value))
		where = append(where, fmt.Sprintf("doc #>> '{%s}' = $%d", strings.Join(parts, ","), len(args)))
	}

	sqlStr := fmt.Sprintf(`SELECT key, doc FROM %s`, s.table)
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	sqlStr += fmt.Sprintf(" ORDER BY key LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントの検索に失敗: %w", err)
	}
	defer rows.Close()

	page := &store.Page{}
	lastKey := ""
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("検索結果の読み取りに失敗: %w", err)
		}
		var doc store.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("ドキュメントのJSONアンマーシャル失敗: %w", err)
		}
		page.Items = append(page.Items, doc)
		lastKey = key
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("検索結果の走査に失敗: %w", err)
	}

	if len(page.Items) == limit {
		page.Last = lastKey
	}
	return page, nil
}
