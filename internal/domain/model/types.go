package model

import "fmt"

// GeojsonType GeoJSONオブジェクトのtype識別子（閉じた集合）
type GeojsonType string

const (
	GeojsonTypePoint             GeojsonType = "Point"
	GeojsonTypeFeature           GeojsonType = "Feature"
	GeojsonTypeFeatureCollection GeojsonType = "FeatureCollection"
)

// Validate 識別子が既知の値であることを網羅的に確認する
func (t GeojsonType) Validate() error {
	switch t {
	case GeojsonTypePoint, GeojsonTypeFeature, GeojsonTypeFeatureCollection:
		return nil
	}
	return &ValidationError{
		Field:   "type",
		Message: fmt.Sprintf("unknown GeoJSON type %q", string(t)),
	}
}

// Expect 識別子が期待値と一致することを確認する
func (t GeojsonType) Expect(field string, want GeojsonType) error {
	if t != want {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("type must be %q, got %q", string(want), string(t)),
		}
	}
	return nil
}

// Category 保存対象スポットのカテゴリ（閉じた集合）
type Category string

const (
	CategoryReefer  Category = "Reefer"
	CategoryTobacco Category = "Tobacco"
	CategoryOther   Category = "Other"
)

// Validate カテゴリが既知の値であることを確認する
func (c Category) Validate() error {
	switch c {
	case CategoryReefer, CategoryTobacco, CategoryOther:
		return nil
	}
	return &ValidationError{
		Field:   "properties.category",
		Message: fmt.Sprintf("category must be one of Reefer, Tobacco, Other, got %q", string(c)),
	}
}
