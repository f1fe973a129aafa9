package repository

import (
	"context"

	"MapMarkr-App/internal/domain/model"

	"github.com/paulmach/orb"
)

// FeaturesRepository Featureレコードの永続化操作の契約
type FeaturesRepository interface {
	// Save versionを1進めてレコード全体を書き込み、ストアが返した状態を返す
	Save(ctx context.Context, feature *model.Feature) (*model.Feature, error)

	// Find キーで検索する。存在しない場合はNotFoundError
	Find(ctx context.Context, key string) (*model.Feature, error)

	// FindOrNil キーで検索する。存在しない場合は (nil, nil)
	FindOrNil(ctx context.Context, key string) (*model.Feature, error)

	// Update プロパティへのパッチを適用し、再検証してから書き込む
	Update(ctx context.Context, feature *model.Feature, patch map[string]any) (*model.Feature, error)

	// Delete キーで削除する。存在しないキーの削除はエラーにしない（冪等）
	Delete(ctx context.Context, key string) error

	// Fetch フィルタに一致するレコードをlimit件まで取得する。limit <= 0 は無制限
	Fetch(ctx context.Context, filter model.Filter, limit int) ([]*model.Feature, error)

	// FetchWithinBound 境界ボックス内に位置するレコードをlimit件まで取得する
	FetchWithinBound(ctx context.Context, bound orb.Bound, limit int) ([]*model.Feature, error)

	// Paginate フィルタに一致する総件数と、並べ替え後の1ページ分を返す
	// orderByは name / created / updated のいずれか
	Paginate(ctx context.Context, filter model.Filter, limit, offset int, orderBy string, descending bool) (int, []*model.Feature, error)

	// SaveAll 各レコードを順番に保存し、ストアが返した状態を入力と同順で返す
	// 非トランザクショナル: 途中で失敗しても保存済みの分は巻き戻らない
	SaveAll(ctx context.Context, features []*model.Feature, continueOnError bool) ([]*model.Feature, error)

	// DeleteMany 各レコードを順番に削除し、成功した件数を返す（非トランザクショナル）
	DeleteMany(ctx context.Context, features []*model.Feature, continueOnError bool) (int, error)
}
