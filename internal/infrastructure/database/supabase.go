package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"MapMarkr-App/internal/infrastructure/store"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// SupabaseClient Supabaseクライアントのラッパー
type SupabaseClient struct {
	Client *supabase.Client
}

// NewSupabaseClient 新しいSupabaseクライアントを作成
func NewSupabaseClient(supabaseURL, supabaseAnonKey string) (*SupabaseClient, error) {
	if supabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL環境変数が設定されていません")
	}
	if supabaseAnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_ANON_KEY環境変数が設定されていません")
	}

	client, err := supabase.NewClient(supabaseURL, supabaseAnonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("Supabaseクライアントの初期化に失敗: %w", err)
	}

	return &SupabaseClient{
		Client: client,
	}, nil
}

// GetClient Supabaseクライアントを取得
func (sc *SupabaseClient) GetClient() *supabase.Client {
	return sc.Client
}

// HealthCheck クライアントの初期化確認
func (sc *SupabaseClient) HealthCheck() error {
	if sc.Client == nil {
		return fmt.Errorf("Supabaseクライアントが初期化されていません")
	}
	return nil
}

// docRow key/jsonbテーブルの1行
type docRow struct {
	Key string         `json:"key"`
	Doc store.Document `json:"doc"`
}

// SupabaseStore PostgREST経由でkey/jsonbテーブルをドキュメントストア契約として公開する
// PostgresStoreと同じテーブルスキーマ（key TEXT PRIMARY KEY, doc JSONB）を前提にする
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

// NewSupabaseStore 新しいSupabaseStoreインスタンスを作成
func NewSupabaseStore(client *SupabaseClient, table string) *SupabaseStore {
	return &SupabaseStore{
		client: client.GetClient(),
		table:  table,
	}
}

// Put keyで衝突させたUPSERTを行い、representationで返る保存後の状態を返す
func (s *SupabaseStore) Put(ctx context.Context, doc store.Document) (store.Document, error) {
	key, ok := doc[store.KeyField].(string)
	if !ok || key == "" {
		return nil, fmt.Errorf("ドキュメントに%sフィールドがありません", store.KeyField)
	}

	raw, err := json.Marshal(docRow{Key: key, Doc: doc})
	if err != nil {
		return nil, fmt.Errorf("ドキュメントのJSONマーシャル失敗: %w", err)
	}

	data, _, err := s.client.From(s.table).Insert(string(raw), true, "key", "representation", "").Execute()
	if err != nil {
		return nil, fmt.Errorf("ドキュメントの保存に失敗: %w", err)
	}

	var rows []docRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("保存結果のJSONアンマーシャル失敗: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("保存結果が返されませんでした (key=%s)", key)
	}
	return rows[0].Doc, nil
}

func (s *SupabaseStore) Get(ctx context.Context, key string) (store.Document, error) {
	data, _, err := s.client.From(s.table).Select("key,doc", "", false).Eq("key", key).Execute()
	if err != nil {
		return nil, fmt.Errorf("ドキュメントの取得に失敗: %w", err)
	}

	var rows []docRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("ドキュメントのJSONアンマーシャル失敗: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].Doc, nil
}

// Delete 行を削除する。対象が存在しなくてもエラーにしない
func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	_, _, err := s.client.From(s.table).Delete("", "").Eq("key", key).Execute()
	if err != nil {
		return fmt.Errorf("ドキュメントの削除に失敗: %w", err)
	}
	return nil
}

// Fetch key昇順でクエリに一致する1ページ分を返す。カーソルは key > last
func (s *SupabaseStore) Fetch(ctx context.Context, query store.Query, limit int, last string) (*store.Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	fb := s.client.From(s.table).Select("key,doc", "", false)
	if last != "" {
		fb = fb.Gt("key", last)
	}
	for path, value := range query {
		fb = fb.Eq(jsonColumn(path), fmt.Sprintf("%v", value))
	}
	fb = fb.Order("key", &postgrest.OrderOpts{Ascending: true}).Limit(limit, "")

	data, _, err := fb.Execute()
	if err != nil {
		return nil, fmt.Errorf("ドキュメントの検索に失敗: %w", err)
	}

	var rows []docRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("検索結果のJSONアンマーシャル失敗: %w", err)
	}

	page := &store.Page{}
	for _, row := range rows {
		page.Items = append(page.Items, row.Doc)
	}
	if len(rows) == limit {
		page.Last = rows[len(rows)-1].Key
	}
	return page, nil
}

// jsonColumn ドット区切りのフィールドパスをPostgRESTのjsonb参照列に変換する
// 例: properties.category -> doc->properties->>category
func jsonColumn(path string) string {
	parts := strings.Split(path, ".")
	if len(parts) == 1 {
		return "doc->>" + parts[0]
	}
	return "doc->" + strings.Join(parts[:len(parts)-1], "->") + "->>" + parts[len(parts)-1]
}
