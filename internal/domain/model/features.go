package model

// FeatureRequest POST /features のリクエストボディ
type FeatureRequest struct {
	Type       GeojsonType  `json:"type" binding:"required"`
	Geometry   PointRequest `json:"geometry" binding:"required"`
	Properties PropsRequest `json:"properties" binding:"required"`
}

// PointRequest リクエスト中のジオメトリ。座標は生の数値列で受けて構築時に検証する
type PointRequest struct {
	Type        GeojsonType `json:"type" binding:"required"`
	Coordinates []float64   `json:"coordinates" binding:"required"`
}

// PropsRequest リクエスト中のプロパティ。タイムスタンプとversionはサーバー側で付与する
type PropsRequest struct {
	Name     string   `json:"name" binding:"required"`
	Note     string   `json:"note"`
	Category Category `json:"category" binding:"required"`
}

// ToFeature リクエストを検証して未保存のFeatureを構築する
func (r *FeatureRequest) ToFeature() (*Feature, error) {
	if err := r.Type.Expect("type", GeojsonTypeFeature); err != nil {
		return nil, err
	}
	if err := r.Geometry.Type.Expect("geometry.type", GeojsonTypePoint); err != nil {
		return nil, err
	}
	position, err := NewPosition(r.Geometry.Coordinates)
	if err != nil {
		return nil, err
	}

	geometry := Point{Type: GeojsonTypePoint, Coordinates: position}
	properties := Props{
		Name:     r.Properties.Name,
		Note:     r.Properties.Note,
		Category: r.Properties.Category,
	}
	return NewFeature(geometry, properties)
}

// FeatureCollectionRequest POST /features/bulk のリクエストボディ
type FeatureCollectionRequest struct {
	Type     GeojsonType      `json:"type" binding:"required"`
	Features []FeatureRequest `json:"features" binding:"required"`
}

// ToFeatureCollection リクエストを検証してFeatureCollectionを構築する
func (r *FeatureCollectionRequest) ToFeatureCollection() (*FeatureCollection, error) {
	if err := r.Type.Expect("type", GeojsonTypeFeatureCollection); err != nil {
		return nil, err
	}
	features := make([]*Feature, 0, len(r.Features))
	for i := range r.Features {
		feature, err := r.Features[i].ToFeature()
		if err != nil {
			return nil, err
		}
		features = append(features, feature)
	}
	return NewFeatureCollection(features), nil
}

// UpdateFeatureRequest PUT /features/:id のリクエストボディ。nilのフィールドは変更しない
type UpdateFeatureRequest struct {
	Name     *string   `json:"name"`
	Note     *string   `json:"note"`
	Category *Category `json:"category"`
}

// Patch 指定されたフィールドだけをプロパティへのパッチに変換する
func (r *UpdateFeatureRequest) Patch() map[string]any {
	patch := make(map[string]any)
	if r.Name != nil {
		patch["name"] = *r.Name
	}
	if r.Note != nil {
		patch["note"] = *r.Note
	}
	if r.Category != nil {
		patch["category"] = string(*r.Category)
	}
	return patch
}

// FeaturePage ページネーション結果。Totalはフィルタに一致した総件数
type FeaturePage struct {
	Total    int        `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
	Features []*Feature `json:"features"`
}
