package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"MapMarkr-App/internal/domain/model"
	"MapMarkr-App/internal/domain/repository"
	"MapMarkr-App/internal/infrastructure/store"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// StoreFeaturesRepository ドキュメントストア上のFeatureリポジトリ
// バックエンド（Firestore / Postgres / Supabase / メモリ）はstore.Clientで差し替える
type StoreFeaturesRepository struct {
	base *Base[*model.Feature]
}

// NewStoreFeaturesRepository 新しいStoreFeaturesRepositoryインスタンスを作成
func NewStoreFeaturesRepository(client store.Client, fetchLimit int) repository.FeaturesRepository {
	return &StoreFeaturesRepository{
		base: NewBase(client, featureCodec(), fetchLimit),
	}
}

// featureCodec Featureと保存ドキュメントの相互変換
// ドキュメントにはドメインのidとは別に、ストアの主キーであるkeyフィールドを注入する
func featureCodec() Codec[*model.Feature] {
	return Codec[*model.Feature]{
		Encode: encodeFeature,
		Decode: decodeFeature,
		Key:    func(f *model.Feature) string { return f.StorageKey() },
	}
}

func encodeFeature(f *model.Feature) (store.Document, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc[store.KeyField] = f.StorageKey()
	return doc, nil
}

func decodeFeature(doc store.Document) (*model.Feature, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var feature model.Feature
	if err := json.Unmarshal(raw, &feature); err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			return nil, vErr
		}
		return nil, &model.ValidationError{Field: "document", Message: err.Error()}
	}

	// 識別子が欠けている古いドキュメントはkeyから復元する
	if feature.ID == uuid.Nil {
		if key, ok := doc[store.KeyField].(string); ok {
			if parsed, err := uuid.Parse(key); err == nil {
				feature.ID = parsed
			}
		}
	}
	// versionが無いドキュメントは1として扱う
	if feature.Version == 0 {
		feature.Version = 1
	}

	feature.Normalize()
	if err := feature.Validate(); err != nil {
		return nil, err
	}
	return &feature, nil
}

func (r *StoreFeaturesRepository) Save(ctx context.Context, feature *model.Feature) (*model.Feature, error) {
	return r.base.Save(ctx, feature)
}

func (r *StoreFeaturesRepository) Find(ctx context.Context, key string) (*model.Feature, error) {
	return r.base.Find(ctx, key)
}

func (r *StoreFeaturesRepository) FindOrNil(ctx context.Context, key string) (*model.Feature, error) {
	return r.base.FindOrNil(ctx, key)
}

// Update プロパティへのパッチを適用する。更新時刻はここで進め、作成時刻は変えない
func (r *StoreFeaturesRepository) Update(ctx context.Context, feature *model.Feature, patch map[string]any) (*model.Feature, error) {
	properties := store.Document{}
	for key, value := range patch {
		properties[key] = value
	}
	properties["updated"] = time.Now().Format(time.RFC3339Nano)
	return r.base.Update(ctx, feature, store.Document{"properties": properties})
}

func (r *StoreFeaturesRepository) Delete(ctx context.Context, key string) error {
	return r.base.Delete(ctx, key)
}

func (r *StoreFeaturesRepository) Fetch(ctx context.Context, filter model.Filter, limit int) ([]*model.Feature, error) {
	return r.base.Fetch(ctx, store.Query(filter), limit)
}

// FetchWithinBound 境界ボックス内のFeatureをlimit件まで返す
// ストア側に空間クエリがないため全件を取得してメモリ上で絞り込む
func (r *StoreFeaturesRepository) FetchWithinBound(ctx context.Context, bound orb.Bound, limit int) ([]*model.Feature, error) {
	features, err := r.base.Fetch(ctx, store.Query{}, 0)
	if err != nil {
		return nil, err
	}

	var within []*model.Feature
	for _, feature := range features {
		if !bound.Contains(feature.Geometry.Coordinates.ToOrbPoint()) {
			continue
		}
		within = append(within, feature)
		if limit > 0 && len(within) >= limit {
			break
		}
	}
	return within, nil
}

func (r *StoreFeaturesRepository) Paginate(ctx context.Context, filter model.Filter, limit, offset int, orderBy string, descending bool) (int, []*model.Feature, error) {
	return r.base.Paginate(ctx, store.Query(filter), limit, offset, featureLess(orderBy), descending)
}

func (r *StoreFeaturesRepository) SaveAll(ctx context.Context, features []*model.Feature, continueOnError bool) ([]*model.Feature, error) {
	return r.base.SaveAll(ctx, features, continueOnError)
}

func (r *StoreFeaturesRepository) DeleteMany(ctx context.Context, features []*model.Feature, continueOnError bool) (int, error) {
	return r.base.DeleteMany(ctx, features, continueOnError)
}

// featureLess 並べ替えキー名から比較関数を引く。未知のキーはname扱い
func featureLess(orderBy string) func(a, b *model.Feature) bool {
	switch orderBy {
	case "created":
		return func(a, b *model.Feature) bool { return a.Properties.Created.Before(b.Properties.Created) }
	case "updated":
		return func(a, b *model.Feature) bool { return a.Properties.Updated.Before(b.Properties.Updated) }
	default:
		return func(a, b *model.Feature) bool { return a.Properties.Name < b.Properties.Name }
	}
}
