package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"MapMarkr-App/internal/domain/model"
	domainrepo "MapMarkr-App/internal/domain/repository"
	"MapMarkr-App/internal/infrastructure/store"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository() domainrepo.FeaturesRepository {
	return NewStoreFeaturesRepository(store.NewMemoryStore(), 25)
}

func makeFeature(t *testing.T, name string, lon, lat float64) *model.Feature {
	t.Helper()
	geometry := model.Point{
		Type:        model.GeojsonTypePoint,
		Coordinates: model.Position{Lon: lon, Lat: lat},
	}
	feature, err := model.NewFeature(geometry, model.Props{Name: name, Category: model.CategoryOther})
	if err != nil {
		t.Fatalf("Featureの構築に失敗: %v", err)
	}
	return feature
}

// flakyStore 先頭から指定回数だけPutを失敗させるストア（リトライ検証用）
type flakyStore struct {
	store.Client
	failures int
	puts     int
}

func (f *flakyStore) Put(ctx context.Context, doc store.Document) (store.Document, error) {
	f.puts++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	return f.Client.Put(ctx, doc)
}

// brokenAfterStore 指定回数の成功後にPutが常に失敗するストア（一括操作の検証用）
type brokenAfterStore struct {
	store.Client
	remaining int
}

func (b *brokenAfterStore) Put(ctx context.Context, doc store.Document) (store.Document, error) {
	if b.remaining <= 0 {
		return nil, errors.New("connection reset")
	}
	b.remaining--
	return b.Client.Put(ctx, doc)
}

func TestSaveAndUpdateScenario(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	feature := makeFeature(t, "South Beach Lifeguard Station", -80.13, 25.76)
	saved, err := repo.Save(ctx, feature)
	require.NoError(t, err)

	assert.Equal(t, 1, saved.Version)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, saved.Properties.Created, saved.Properties.Updated)

	note := "Renovated"
	updated, err := repo.Update(ctx, saved, (&model.UpdateFeatureRequest{Note: &note}).Patch())
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Renovated", updated.Properties.Note)
	// 触れていないプロパティはパッチで消えない
	assert.Equal(t, "South Beach Lifeguard Station", updated.Properties.Name)
	assert.Equal(t, model.CategoryOther, updated.Properties.Category)
	assert.Equal(t, saved.Properties.Created, updated.Properties.Created)
	assert.True(t, updated.Properties.Updated.After(updated.Properties.Created))
}

func TestMergeDocumentMergesNestedProperties(t *testing.T) {
	// JSON経由のドキュメント（ネストはmap[string]any）にstore.Document型の
	// パッチを重ねても、既存のフィールドが丸ごと置き換わらないこと
	doc := store.Document{
		"key": "a1",
		"properties": map[string]any{
			"name":     "pier",
			"note":     "",
			"category": "Other",
		},
	}
	mergeDocument(doc, store.Document{
		"properties": store.Document{"note": "Renovated"},
	})

	properties, ok := asMap(doc["properties"])
	require.True(t, ok)
	assert.Equal(t, "Renovated", properties["note"])
	assert.Equal(t, "pier", properties["name"])
	assert.Equal(t, "Other", properties["category"])
}

func TestSaveIncrementsVersionMonotonically(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	feature := makeFeature(t, "pier", -80.1, 25.7)
	previous := feature.Version
	current := feature
	for i := 0; i < 3; i++ {
		saved, err := repo.Save(ctx, current)
		assert.NoError(t, err)
		assert.Greater(t, saved.Version, previous)
		assert.Equal(t, previous+1, saved.Version)
		previous = saved.Version
		current = saved
	}
}

func TestFindRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	saved, err := repo.Save(ctx, makeFeature(t, "pier", -80.1, 25.7))
	assert.NoError(t, err)

	found, err := repo.Find(ctx, saved.StorageKey())
	assert.NoError(t, err)
	assert.Equal(t, saved, found)
}

func TestFindMissingKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()
	missing := uuid.New().String()

	// 既定ではNotFoundError
	_, err := repo.Find(ctx, missing)
	var notFoundErr *model.NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	assert.Equal(t, missing, notFoundErr.Key)

	// FindOrNilは番兵としてnilを返す
	feature, err := repo.FindOrNil(ctx, missing)
	assert.NoError(t, err)
	assert.Nil(t, feature)
}

func TestDeleteThenFind(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	saved, err := repo.Save(ctx, makeFeature(t, "pier", -80.1, 25.7))
	assert.NoError(t, err)

	assert.NoError(t, repo.Delete(ctx, saved.StorageKey()))

	_, err = repo.Find(ctx, saved.StorageKey())
	var notFoundErr *model.NotFoundError
	assert.True(t, errors.As(err, &notFoundErr))

	// 既に消えているキーの削除もエラーにならない（冪等）
	assert.NoError(t, repo.Delete(ctx, saved.StorageKey()))
}

func TestUpdateInvalidPatchFailsBeforeStore(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	saved, err := repo.Save(ctx, makeFeature(t, "pier", -80.1, 25.7))
	assert.NoError(t, err)

	_, err = repo.Update(ctx, saved, map[string]any{"category": "Snacks"})
	var validationErr *model.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// 無効なパッチはストアに書き込まれていない
	found, err := repo.Find(ctx, saved.StorageKey())
	assert.NoError(t, err)
	assert.Equal(t, saved.Version, found.Version)
	assert.Equal(t, model.CategoryOther, found.Properties.Category)
}

func TestFetchReturnsAllMatchesUpToLimit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	for i := 0; i < 3; i++ {
		_, err := repo.Save(ctx, makeFeature(t, fmt.Sprintf("spot-%d", i), -80.1, 25.7))
		assert.NoError(t, err)
	}

	features, err := repo.Fetch(ctx, model.Filter{}, 10)
	assert.NoError(t, err)
	assert.Len(t, features, 3)

	features, err = repo.Fetch(ctx, model.Filter{}, 2)
	assert.NoError(t, err)
	assert.Len(t, features, 2)
}

func TestFetchFilterByCategory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	geometry := model.Point{Type: model.GeojsonTypePoint, Coordinates: model.Position{Lon: -80.1, Lat: 25.7}}
	other, err := model.NewFeature(geometry, model.Props{Name: "other spot", Category: model.CategoryOther})
	assert.NoError(t, err)
	tobacco, err := model.NewFeature(geometry, model.Props{Name: "tobacco spot", Category: model.CategoryTobacco})
	assert.NoError(t, err)

	_, err = repo.Save(ctx, other)
	assert.NoError(t, err)
	_, err = repo.Save(ctx, tobacco)
	assert.NoError(t, err)

	features, err := repo.Fetch(ctx, model.Filter{"properties.category": "Tobacco"}, 0)
	assert.NoError(t, err)
	assert.Len(t, features, 1)
	assert.Equal(t, "tobacco spot", features[0].Properties.Name)
}

func TestPaginateSortsAndSlices(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	names := []string{"cherry", "apple", "elderberry", "banana", "date"}
	for _, name := range names {
		_, err := repo.Save(ctx, makeFeature(t, name, -80.1, 25.7))
		assert.NoError(t, err)
	}

	total, page, err := repo.Paginate(ctx, model.Filter{}, 2, 1, "name", false)
	assert.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)
	assert.Equal(t, "banana", page[0].Properties.Name)
	assert.Equal(t, "cherry", page[1].Properties.Name)

	// 降順
	total, page, err = repo.Paginate(ctx, model.Filter{}, 2, 0, "name", true)
	assert.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, "elderberry", page[0].Properties.Name)
	assert.Equal(t, "date", page[1].Properties.Name)

	// offsetが総件数を超えたら空ページ
	total, page, err = repo.Paginate(ctx, model.Filter{}, 2, 10, "name", false)
	assert.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, page)
}

func TestFetchWithinBound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.Save(ctx, makeFeature(t, "miami", -80.13, 25.76))
	assert.NoError(t, err)
	_, err = repo.Save(ctx, makeFeature(t, "samoa", -172.1, -13.8))
	assert.NoError(t, err)

	bound := orb.Bound{Min: orb.Point{-81, 25}, Max: orb.Point{-79, 26}}
	features, err := repo.FetchWithinBound(ctx, bound, 0)
	assert.NoError(t, err)
	assert.Len(t, features, 1)
	assert.Equal(t, "miami", features[0].Properties.Name)
}

func TestSaveRetriesOnceOnTransportError(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Client: store.NewMemoryStore(), failures: 1}
	repo := NewStoreFeaturesRepository(flaky, 25)

	saved, err := repo.Save(ctx, makeFeature(t, "pier", -80.1, 25.7))
	assert.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, 2, flaky.puts)
}

func TestSaveFailsAfterTwoTransportErrors(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Client: store.NewMemoryStore(), failures: 2}
	repo := NewStoreFeaturesRepository(flaky, 25)

	_, err := repo.Save(ctx, makeFeature(t, "pier", -80.1, 25.7))
	var storeErr *model.StoreUnavailableError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreUnavailableError, got %v", err)
	}
	assert.Equal(t, 2, flaky.puts)
}

func TestSaveAllPreservesInputOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	features := []*model.Feature{
		makeFeature(t, "first", -80.1, 25.7),
		makeFeature(t, "second", -80.2, 25.8),
		makeFeature(t, "third", -80.3, 25.9),
	}

	saved, err := repo.SaveAll(ctx, features, false)
	assert.NoError(t, err)
	assert.Len(t, saved, 3)
	for i, feature := range saved {
		assert.Equal(t, features[i].Properties.Name, feature.Properties.Name)
		assert.Equal(t, 1, feature.Version)
	}
}

func TestSaveAllAbortsOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	broken := &brokenAfterStore{Client: store.NewMemoryStore(), remaining: 1}
	repo := NewStoreFeaturesRepository(broken, 25)

	features := []*model.Feature{
		makeFeature(t, "first", -80.1, 25.7),
		makeFeature(t, "second", -80.2, 25.8),
		makeFeature(t, "third", -80.3, 25.9),
	}

	saved, err := repo.SaveAll(ctx, features, false)
	assert.Error(t, err)
	// 失敗より前の保存は巻き戻らない（非トランザクショナル）
	assert.Len(t, saved, 1)
	assert.Equal(t, "first", saved[0].Properties.Name)

	var storeErr *model.StoreUnavailableError
	assert.True(t, errors.As(err, &storeErr))
}

func TestDeleteManyReportsCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	var saved []*model.Feature
	for _, name := range []string{"first", "second"} {
		feature, err := repo.Save(ctx, makeFeature(t, name, -80.1, 25.7))
		assert.NoError(t, err)
		saved = append(saved, feature)
	}

	deleted, err := repo.DeleteMany(ctx, saved, false)
	assert.NoError(t, err)
	assert.Equal(t, 2, deleted)

	features, err := repo.Fetch(ctx, model.Filter{}, 0)
	assert.NoError(t, err)
	assert.Empty(t, features)
}
