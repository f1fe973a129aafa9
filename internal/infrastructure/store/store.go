package store

import (
	"context"
	"strings"
)

// KeyField ストア側の主キーとして全ドキュメントに必須のフィールド名
const KeyField = "key"

// Document ストアに読み書きされるJSON形のドキュメント
type Document map[string]any

// Query フィールドパス（ドット区切り）→ 値の等価条件
type Query map[string]any

// Page Fetchの1ページ分の結果。Lastは継続カーソル（空文字列なら最終ページ）
type Page struct {
	Items []Document
	Last  string
}

// Client ホスト型のドキュメントストアに対する操作の契約
type Client interface {
	// Put keyフィールドをキーとしてドキュメント全体を書き込み、保存された状態を返す
	Put(ctx context.Context, doc Document) (Document, error)

	// Get キーでドキュメントを取得する。存在しない場合は (nil, nil)
	Get(ctx context.Context, key string) (Document, error)

	// Delete キーでドキュメントを削除する。存在しないキーでもエラーにしない
	Delete(ctx context.Context, key string) error

	// Fetch クエリに一致するドキュメントを1ページ分取得する
	// limit <= 0 はバックエンドの既定ページサイズ、lastは前ページのカーソル
	Fetch(ctx context.Context, query Query, limit int, last string) (*Page, error)
}

// Lookup ドット区切りのフィールドパスでドキュメントの値を参照する
func Lookup(doc Document, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = map[string]any(doc)
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Matches ドキュメントがクエリの全条件を満たすかどうか
func Matches(doc Document, query Query) bool {
	for path, want := range query {
		got, ok := Lookup(doc, path)
		if !ok || got != want {
			return false
		}
	}
	return true
}
