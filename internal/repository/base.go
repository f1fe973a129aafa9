package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"MapMarkr-App/internal/domain/model"
	"MapMarkr-App/internal/infrastructure/store"
)

// versionField ドキュメント上の楽観的バージョンカウンタ
const versionField = "version"

// Codec レコード型と保存ドキュメントの相互変換を担う
// Decodeはレコードの構築時と同じ検証規則を適用すること
type Codec[T any] struct {
	Encode func(T) (store.Document, error)
	Decode func(store.Document) (T, error)
	Key    func(T) string
}

// Base 識別子とバージョンを持つ任意のレコード型に対する汎用CRUD・ページネーション
//
// 同一キーへ並行してUpdateした場合は最後の書き込みが勝ち、versionが上書きされ得る
// （versionを条件にした比較書き込みは行っていない既知の制限）
type Base[T any] struct {
	store      store.Client
	codec      Codec[T]
	fetchLimit int // ストアへの1リクエストあたりのページサイズ上限
}

// NewBase 新しいBaseインスタンスを作成
func NewBase[T any](client store.Client, codec Codec[T], fetchLimit int) *Base[T] {
	if fetchLimit <= 0 {
		fetchLimit = 25
	}
	return &Base[T]{
		store:      client,
		codec:      codec,
		fetchLimit: fetchLimit,
	}
}

// versionOf ドキュメントのversionフィールドを読む（JSON経由ではfloat64になる）
func versionOf(doc store.Document) int {
	switch v := doc[versionField].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// asMap ネストした値をマップとして取り出す
// JSON経由の値はmap[string]any、呼び出し元が組み立てたパッチはstore.Documentで来る
func asMap(value any) (store.Document, bool) {
	switch m := value.(type) {
	case map[string]any:
		return store.Document(m), true
	case store.Document:
		return m, true
	}
	return nil, false
}

// mergeDocument パッチをドキュメントへ深くマージする
func mergeDocument(dst, patch store.Document) {
	for key, value := range patch {
		if pm, ok := asMap(value); ok {
			if dm, ok := asMap(dst[key]); ok {
				mergeDocument(dm, pm)
				continue
			}
		}
		dst[key] = value
	}
}

// put ドキュメントを書き込む。ネットワーク失敗時は一度だけ再試行し、
// 二度失敗したらStoreUnavailableErrorとして呼び出し元に返す
func (b *Base[T]) put(ctx context.Context, doc store.Document) (store.Document, error) {
	echo, err := b.store.Put(ctx, doc)
	if err == nil {
		return echo, nil
	}

	log.Printf("⚠️ ストアへの書き込みに失敗、再試行します (key=%v): %v", doc[store.KeyField], err)
	echo, err = b.store.Put(ctx, doc)
	if err != nil {
		log.Printf("❌ ストアへの書き込みの再試行も失敗 (key=%v): %v", doc[store.KeyField], err)
		return nil, &model.StoreUnavailableError{Op: "put", Err: err}
	}
	return echo, nil
}

// get キーでドキュメントを読む。存在しない場合は (nil, nil)
func (b *Base[T]) get(ctx context.Context, key string) (store.Document, error) {
	doc, err := b.store.Get(ctx, key)
	if err != nil {
		log.Printf("❌ ストアからの読み取りに失敗 (key=%s): %v", key, err)
		return nil, &model.StoreUnavailableError{Op: "get", Err: err}
	}
	return doc, nil
}

// Save versionを現在値から1進めてレコード全体を書き込み、ストアが返した
// ドキュメントから再構築したレコードを返す。書き込み前のメモリ上の値ではなく、
// サーバー側で正規化された状態を呼び出し元が観測できる
func (b *Base[T]) Save(ctx context.Context, record T) (T, error) {
	var zero T
	doc, err := b.codec.Encode(record)
	if err != nil {
		return zero, err
	}
	doc[versionField] = versionOf(doc) + 1

	echo, err := b.put(ctx, doc)
	if err != nil {
		return zero, err
	}
	return b.codec.Decode(echo)
}

// Find キーで検索する。存在しない場合はNotFoundError
func (b *Base[T]) Find(ctx context.Context, key string) (T, error) {
	var zero T
	doc, err := b.get(ctx, key)
	if err != nil {
		return zero, err
	}
	if doc == nil {
		return zero, &model.NotFoundError{Key: key}
	}
	return b.codec.Decode(doc)
}

// FindOrNil キーで検索する。存在しない場合はゼロ値と (nil) を返す
func (b *Base[T]) FindOrNil(ctx context.Context, key string) (T, error) {
	var zero T
	doc, err := b.get(ctx, key)
	if err != nil || doc == nil {
		return zero, err
	}
	return b.codec.Decode(doc)
}

// Update パッチをマージした結果を構築時と同じ規則で再検証し、versionを1進めて
// 全体を書き込む。検証に失敗した場合はストアに触れずに失敗する。
// 返り値はストアが返したドキュメントから作った新しいインスタンス
func (b *Base[T]) Update(ctx context.Context, record T, patch store.Document) (T, error) {
	var zero T
	doc, err := b.codec.Encode(record)
	if err != nil {
		return zero, err
	}
	mergeDocument(doc, patch)
	doc[versionField] = versionOf(doc) + 1

	// 再検証。無効なパッチは作成時の無効な入力と同じ形で失敗する
	merged, err := b.codec.Decode(doc)
	if err != nil {
		return zero, err
	}
	normalized, err := b.codec.Encode(merged)
	if err != nil {
		return zero, err
	}

	echo, err := b.put(ctx, normalized)
	if err != nil {
		return zero, err
	}
	return b.codec.Decode(echo)
}

// Delete キーで削除する。存在しないキーの削除はエラーにしない（冪等）
func (b *Base[T]) Delete(ctx context.Context, key string) error {
	if err := b.store.Delete(ctx, key); err != nil {
		log.Printf("❌ ストアからの削除に失敗 (key=%s): %v", key, err)
		return &model.StoreUnavailableError{Op: "delete", Err: err}
	}
	return nil
}

// Fetch カーソルでページを辿り、limit件に達するか最終ページに到達するまで
// 取得して実体化したスライスを返す。limit <= 0 は無制限。
// 1リクエストのページサイズは min(limit, fetchLimit) に抑える
func (b *Base[T]) Fetch(ctx context.Context, query store.Query, limit int) ([]T, error) {
	var records []T
	last := ""
	for {
		size := b.fetchLimit
		if limit > 0 && limit-len(records) < size {
			size = limit - len(records)
		}

		page, err := b.store.Fetch(ctx, query, size, last)
		if err != nil {
			log.Printf("❌ ストアの検索に失敗: %v", err)
			return nil, &model.StoreUnavailableError{Op: "fetch", Err: err}
		}

		for _, doc := range page.Items {
			record, err := b.codec.Decode(doc)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
			if limit > 0 && len(records) >= limit {
				return records, nil
			}
		}

		if page.Last == "" {
			return records, nil
		}
		last = page.Last
	}
}

// Paginate フィルタに一致する総件数と、並べ替え後の [offset : offset+limit] の
// 1ページを返す。ストア側のクエリに並べ替えがないため全件を取得してメモリ上で
// ソートする。1ページあたり一致件数ぶんの転送が発生するのがこの方式の
// スケーラビリティ上の限界
func (b *Base[T]) Paginate(ctx context.Context, query store.Query, limit, offset int, less func(a, b T) bool, descending bool) (int, []T, error) {
	records, err := b.Fetch(ctx, query, 0)
	if err != nil {
		return 0, nil, err
	}
	total := len(records)

	sort.SliceStable(records, func(i, j int) bool {
		if descending {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return total, nil, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return total, records[offset:end], nil
}

// SaveAll 各レコードを順番に保存し、ストアが返した状態を入力と同順で返す。
// 既定では最初の失敗で残りを中断し、それまでに保存できた件数とともにエラーを
// 返す。continueOnErrorの場合は失敗を集約して続行する。非トランザクショナル
func (b *Base[T]) SaveAll(ctx context.Context, records []T, continueOnError bool) ([]T, error) {
	saved := make([]T, 0, len(records))
	var errs []error
	for i, record := range records {
		echo, err := b.Save(ctx, record)
		if err != nil {
			if !continueOnError {
				return saved, fmt.Errorf("一括保存が%d件目で失敗 (保存済み%d件): %w", i+1, len(saved), err)
			}
			errs = append(errs, err)
			continue
		}
		saved = append(saved, echo)
	}
	return saved, errors.Join(errs...)
}

// DeleteMany 各レコードを順番に削除し、成功した件数を返す。
// 既定では最初の失敗で中断する。非トランザクショナル
func (b *Base[T]) DeleteMany(ctx context.Context, records []T, continueOnError bool) (int, error) {
	deleted := 0
	var errs []error
	for i, record := range records {
		if err := b.Delete(ctx, b.codec.Key(record)); err != nil {
			if !continueOnError {
				return deleted, fmt.Errorf("一括削除が%d件目で失敗 (削除済み%d件): %w", i+1, deleted, err)
			}
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}
