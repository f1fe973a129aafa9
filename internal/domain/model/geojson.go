package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Position 経度・緯度の組。GeoJSONの並び順 [longitude, latitude] で入出力する
// 一度構築したら変更しない
type Position struct {
	Lon float64
	Lat float64
}

// NewPosition [lon, lat] の組を検証してPositionを構築する（純粋関数）
// 境界値 -180, 180, -90, 90 はそれ自体が無効（開区間）
func NewPosition(coordinates []float64) (Position, error) {
	if len(coordinates) != 2 {
		return Position{}, &ValidationError{
			Field:   "geometry.coordinates",
			Message: fmt.Sprintf("coordinates must have exactly 2 items [longitude, latitude], got %d", len(coordinates)),
		}
	}

	lon, lat := coordinates[0], coordinates[1]
	if lon <= -180 || lon >= 180 {
		return Position{}, &ValidationError{
			Field:   "geometry.coordinates.longitude",
			Message: fmt.Sprintf("longitude must be greater than -180 and less than 180, got %v", lon),
		}
	}
	if lat <= -90 || lat >= 90 {
		return Position{}, &ValidationError{
			Field:   "geometry.coordinates.latitude",
			Message: fmt.Sprintf("latitude must be greater than -90 and less than 90, got %v", lat),
		}
	}

	return Position{Lon: lon, Lat: lat}, nil
}

// MarshalJSON GeoJSONの [lon, lat] 配列として出力する
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lon, p.Lat})
}

// UnmarshalJSON [lon, lat] 配列を検証付きで読み込む
func (p *Position) UnmarshalJSON(data []byte) error {
	var coordinates []float64
	if err := json.Unmarshal(data, &coordinates); err != nil {
		return &ValidationError{
			Field:   "geometry.coordinates",
			Message: "coordinates must be a numeric array [longitude, latitude]",
		}
	}
	position, err := NewPosition(coordinates)
	if err != nil {
		return err
	}
	*p = position
	return nil
}

// ToOrbPoint orbのPoint型に変換する（境界ボックス判定などの幾何計算で使用）
func (p Position) ToOrbPoint() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Point GeoJSONのPointジオメトリ
type Point struct {
	Type        GeojsonType `json:"type"`
	Coordinates Position    `json:"coordinates"`
}

// Validate type識別子がちょうど"Point"であり、座標が範囲内であることを確認する
func (p Point) Validate() error {
	if err := p.Type.Expect("geometry.type", GeojsonTypePoint); err != nil {
		return err
	}
	_, err := NewPosition([]float64{p.Coordinates.Lon, p.Coordinates.Lat})
	return err
}

// Timestamps 作成・更新時刻。作成時刻は不変、更新時刻は変更のたびに進む
type Timestamps struct {
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Props GeoJSON Featureのpropertiesブロック
type Props struct {
	Name     string   `json:"name"`
	Note     string   `json:"note,omitempty"`
	Category Category `json:"category"`
	Timestamps
}

// Validate name必須（トリム後に非空）とカテゴリを確認する
func (p Props) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{
			Field:   "properties.name",
			Message: "name is required and must be non-empty",
		}
	}
	return p.Category.Validate()
}

// Feature 保存対象のGeoJSON Featureレコード
// IDはドメイン側の識別子で、ストアの主キー（keyフィールド）とは別に保持する
type Feature struct {
	ID         uuid.UUID   `json:"id"`
	Type       GeojsonType `json:"type"`
	Geometry   Point       `json:"geometry"`
	Properties Props       `json:"properties"`
	Version    int         `json:"version"`
}

// NewFeature 検証済みのジオメトリとプロパティから未保存のFeatureを構築する
// IDを自動採番し、versionは0（未保存）から始まる。作成・更新時刻は同時刻になる
func NewFeature(geometry Point, properties Props) (*Feature, error) {
	now := time.Now()
	properties.Created = now
	properties.Updated = now

	feature := &Feature{
		ID:         uuid.New(),
		Type:       GeojsonTypeFeature,
		Geometry:   geometry,
		Properties: properties,
		Version:    0,
	}
	feature.Normalize()
	if err := feature.Validate(); err != nil {
		return nil, err
	}
	return feature, nil
}

// Normalize ユーザー入力文字列の前後の空白を取り除く
func (f *Feature) Normalize() {
	f.Properties.Name = strings.TrimSpace(f.Properties.Name)
	f.Properties.Note = strings.TrimSpace(f.Properties.Note)
}

// Validate type識別子・ジオメトリ・プロパティをまとめて検証する
func (f *Feature) Validate() error {
	if err := f.Type.Expect("type", GeojsonTypeFeature); err != nil {
		return err
	}
	if err := f.Geometry.Validate(); err != nil {
		return err
	}
	return f.Properties.Validate()
}

// StorageKey ストア側の主キーとして使う値
func (f *Feature) StorageKey() string {
	return f.ID.String()
}

// FeatureCollection Featureの順序付き列。一括保存・削除の窓口であり、
// それ自体がストアに保存されるエンティティではない
type FeatureCollection struct {
	Type     GeojsonType `json:"type"`
	Features []*Feature  `json:"features"`
}

// NewFeatureCollection Featureの列からFeatureCollectionを構築する
func NewFeatureCollection(features []*Feature) *FeatureCollection {
	return &FeatureCollection{
		Type:     GeojsonTypeFeatureCollection,
		Features: features,
	}
}

// Filter フィールドパス（ドット区切り）→ 値の等価条件。空なら全件
type Filter map[string]any
