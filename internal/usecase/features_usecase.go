package usecase

import (
	"context"
	"fmt"
	"log"

	"MapMarkr-App/internal/domain/model"
	"MapMarkr-App/internal/domain/repository"

	"github.com/paulmach/orb"
)

// FeaturesUseCase Featureの登録・検索・更新・削除のアプリケーションロジック
type FeaturesUseCase interface {
	// Create リクエストを検証してFeatureを構築し、保存した状態を返す
	Create(ctx context.Context, req *model.FeatureRequest) (*model.Feature, error)

	// Get IDでFeatureを取得する。存在しない場合はNotFoundError
	Get(ctx context.Context, id string) (*model.Feature, error)

	// List カテゴリで絞り込んだFeatureをlimit件まで取得する（空カテゴリは全件）
	List(ctx context.Context, category string, limit int) (*model.FeatureCollection, error)

	// ListByBoundingBox 境界ボックス内のFeatureを取得する
	ListByBoundingBox(ctx context.Context, minLng, minLat, maxLng, maxLat float64, limit int) (*model.FeatureCollection, error)

	// Page 一致総件数つきの並べ替え済み1ページを返す
	Page(ctx context.Context, category string, limit, offset int, orderBy string, descending bool) (*model.FeaturePage, error)

	// Update 既存Featureにパッチを適用し、保存後の状態を返す
	Update(ctx context.Context, id string, req *model.UpdateFeatureRequest) (*model.Feature, error)

	// Delete IDで削除する（冪等）
	Delete(ctx context.Context, id string) error

	// CreateAll 複数Featureを順番に保存する。非トランザクショナル
	CreateAll(ctx context.Context, req *model.FeatureCollectionRequest) (*model.FeatureCollection, error)
}

// featuresUseCaseImpl FeaturesUseCaseの実装
type featuresUseCaseImpl struct {
	repo             repository.FeaturesRepository
	defaultPageLimit int
}

// NewFeaturesUseCase 新しいFeaturesUseCaseインスタンスを作成
func NewFeaturesUseCase(repo repository.FeaturesRepository, defaultPageLimit int) FeaturesUseCase {
	if defaultPageLimit <= 0 {
		defaultPageLimit = 10
	}
	return &featuresUseCaseImpl{
		repo:             repo,
		defaultPageLimit: defaultPageLimit,
	}
}

func (u *featuresUseCaseImpl) Create(ctx context.Context, req *model.FeatureRequest) (*model.Feature, error) {
	feature, err := req.ToFeature()
	if err != nil {
		return nil, err
	}

	saved, err := u.repo.Save(ctx, feature)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Feature saved: %s (%s)", saved.ID, saved.Properties.Name)
	return saved, nil
}

func (u *featuresUseCaseImpl) Get(ctx context.Context, id string) (*model.Feature, error) {
	return u.repo.Find(ctx, id)
}

func (u *featuresUseCaseImpl) List(ctx context.Context, category string, limit int) (*model.FeatureCollection, error) {
	filter := model.Filter{}
	if category != "" {
		if err := model.Category(category).Validate(); err != nil {
			return nil, err
		}
		filter["properties.category"] = category
	}

	features, err := u.repo.Fetch(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	return model.NewFeatureCollection(features), nil
}

func (u *featuresUseCaseImpl) ListByBoundingBox(ctx context.Context, minLng, minLat, maxLng, maxLat float64, limit int) (*model.FeatureCollection, error) {
	// 入力値の検証
	if minLng >= maxLng || minLat >= maxLat {
		return nil, &model.ValidationError{Field: "bbox", Message: "min values must be less than max values"}
	}
	if minLng < -180 || maxLng > 180 || minLat < -90 || maxLat > 90 {
		return nil, &model.ValidationError{Field: "bbox", Message: "coordinates are out of range"}
	}

	bound := orb.Bound{
		Min: orb.Point{minLng, minLat},
		Max: orb.Point{maxLng, maxLat},
	}

	features, err := u.repo.FetchWithinBound(ctx, bound, limit)
	if err != nil {
		return nil, err
	}
	return model.NewFeatureCollection(features), nil
}

func (u *featuresUseCaseImpl) Page(ctx context.Context, category string, limit, offset int, orderBy string, descending bool) (*model.FeaturePage, error) {
	if limit <= 0 {
		limit = u.defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	filter := model.Filter{}
	if category != "" {
		if err := model.Category(category).Validate(); err != nil {
			return nil, err
		}
		filter["properties.category"] = category
	}

	total, features, err := u.repo.Paginate(ctx, filter, limit, offset, orderBy, descending)
	if err != nil {
		return nil, err
	}
	return &model.FeaturePage{
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		Features: features,
	}, nil
}

func (u *featuresUseCaseImpl) Update(ctx context.Context, id string, req *model.UpdateFeatureRequest) (*model.Feature, error) {
	current, err := u.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := req.Patch()
	if len(patch) == 0 {
		return nil, &model.ValidationError{Field: "request", Message: "at least one of name, note, category is required"}
	}

	updated, err := u.repo.Update(ctx, current, patch)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Feature updated: %s (v%d)", updated.ID, updated.Version)
	return updated, nil
}

func (u *featuresUseCaseImpl) Delete(ctx context.Context, id string) error {
	if err := u.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("Featureの削除に失敗: %w", err)
	}
	log.Printf("✅ Feature deleted: %s", id)
	return nil
}

func (u *featuresUseCaseImpl) CreateAll(ctx context.Context, req *model.FeatureCollectionRequest) (*model.FeatureCollection, error) {
	collection, err := req.ToFeatureCollection()
	if err != nil {
		return nil, err
	}

	saved, err := u.repo.SaveAll(ctx, collection.Features, false)
	if err != nil {
		return nil, fmt.Errorf("一括保存に失敗 (保存済み%d件): %w", len(saved), err)
	}
	log.Printf("✅ %d features saved", len(saved))
	return model.NewFeatureCollection(saved), nil
}
