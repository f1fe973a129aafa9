package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore すべてをメモリ上に保持するストア実装。再起動でデータは消える
// テストおよびローカル開発用。並行アクセスに対して安全
type MemoryStore struct {
	mu          sync.RWMutex
	docs        map[string]Document
	defaultPage int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:        make(map[string]Document),
		defaultPage: 25,
	}
}

// deepCopy JSONを往復させてドキュメントの深いコピーを作る
func deepCopy(src Document) Document {
	if src == nil {
		return nil
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return nil
	}
	var dst Document
	if err := json.Unmarshal(raw, &dst); err != nil {
		return nil
	}
	return dst
}

func (m *MemoryStore) Put(ctx context.Context, doc Document) (Document, error) {
	key, ok := doc[KeyField].(string)
	if !ok || key == "" {
		return nil, fmt.Errorf("ドキュメントに%sフィールドがありません", KeyField)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := deepCopy(doc)
	m.docs[key] = stored
	return deepCopy(stored), nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, nil
	}
	return deepCopy(doc), nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

// Fetch キー昇順でクエリに一致するドキュメントを1ページ分返す
func (m *MemoryStore) Fetch(ctx context.Context, query Query, limit int, last string) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = m.defaultPage
	}

	keys := make([]string, 0, len(m.docs))
	for key := range m.docs {
		if last != "" && key <= last {
			continue
		}
		if !Matches(m.docs[key], query) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	page := &Page{}
	for _, key := range keys {
		if len(page.Items) >= limit {
			// まだ残りがあるので継続カーソルを設定する
			page.Last = page.Items[len(page.Items)-1][KeyField].(string)
			break
		}
		page.Items = append(page.Items, deepCopy(m.docs[key]))
	}
	return page, nil
}
