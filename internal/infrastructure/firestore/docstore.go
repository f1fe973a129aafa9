package firestore

import (
	"context"
	"fmt"
	"strings"

	"MapMarkr-App/internal/infrastructure/store"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// defaultPageSize limit未指定のFetchで使う1ページの件数
const defaultPageSize = 25

// Store Firestoreの1コレクションをドキュメントストア契約として公開する
type Store struct {
	client     *firestore.Client
	collection string
}

// NewStore 新しいStoreインスタンスを作成
func NewStore(client *firestore.Client, collection string) *Store {
	return &Store{
		client:     client,
		collection: collection,
	}
}

// Put keyフィールドをドキュメントIDとして全体を書き込み、保存後の状態を読み戻して返す
func (s *Store) Put(ctx context.Context, doc store.Document) (store.Document, error) {
	key, ok := doc[store.KeyField].(string)
	if !ok || key == "" {
		return nil, fmt.Errorf("ドキュメントに%sフィールドがありません", store.KeyField)
	}

	ref := s.client.Collection(s.collection).Doc(key)
	if _, err := ref.Set(ctx, map[string]any(doc)); err != nil {
		return nil, fmt.Errorf("ドキュメントの保存に失敗: %w", err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("保存したドキュメントの読み戻しに失敗: %w", err)
	}
	return store.Document(snap.Data()), nil
}

func (s *Store) Get(ctx context.Context, key string) (store.Document, error) {
	snap, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	if err != nil {
		// Firestoreのエラータイプをチェック
		if status := err.Error(); strings.Contains(status, "NotFound") || strings.Contains(status, "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("ドキュメントの取得に失敗: %w", err)
	}
	return store.Document(snap.Data()), nil
}

// Delete ドキュメントを削除する。Firestoreでは存在しないIDの削除も成功する
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Collection(s.collection).Doc(key).Delete(ctx); err != nil {
		return fmt.Errorf("ドキュメントの削除に失敗: %w", err)
	}
	return nil
}

// Fetch 等価条件でWhereを重ね、ドキュメントID昇順で1ページ分を返す
// lastは前ページ最後のドキュメントID（StartAfterカーソル）
func (s *Store) Fetch(ctx context.Context, query store.Query, limit int, last string) (*store.Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	q := s.client.Collection(s.collection).Query
	for path, value := range query {
		q = q.Where(path, "==", value)
	}
	q = q.OrderBy(firestore.DocumentID, firestore.Asc)
	if last != "" {
		q = q.StartAfter(last)
	}
	q = q.Limit(limit)

	it := q.Documents(ctx)
	defer it.Stop()

	page := &store.Page{}
	lastID := ""
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ドキュメントの検索に失敗: %w", err)
		}
		page.Items = append(page.Items, store.Document(snap.Data()))
		lastID = snap.Ref.ID
	}

	// 1ページが埋まった場合のみ続きがある可能性を示す
	if len(page.Items) == limit {
		page.Last = lastID
	}
	return page, nil
}
