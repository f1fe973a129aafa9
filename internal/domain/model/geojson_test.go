package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewPositionValidRange(t *testing.T) {
	cases := [][]float64{
		{-80.13, 25.76},
		{-179.99, -89.99},
		{179.99, 89.99},
		{0, 0},
	}

	for _, coordinates := range cases {
		position, err := NewPosition(coordinates)
		assert.NoError(t, err, "coordinates %v should be valid", coordinates)
		assert.Equal(t, coordinates[0], position.Lon)
		assert.Equal(t, coordinates[1], position.Lat)
	}
}

func TestNewPositionRejectsOutOfRange(t *testing.T) {
	// 境界値そのものも無効（開区間）
	cases := []struct {
		coordinates []float64
		field       string
	}{
		{[]float64{-180, 0}, "geometry.coordinates.longitude"},
		{[]float64{180, 0}, "geometry.coordinates.longitude"},
		{[]float64{200.5, 0}, "geometry.coordinates.longitude"},
		{[]float64{0, -90}, "geometry.coordinates.latitude"},
		{[]float64{0, 90}, "geometry.coordinates.latitude"},
		{[]float64{0, 91.2}, "geometry.coordinates.latitude"},
	}

	for _, tc := range cases {
		_, err := NewPosition(tc.coordinates)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("coordinates %v should be rejected, got %v", tc.coordinates, err)
		}
		assert.Equal(t, tc.field, validationErr.Field)
	}
}

func TestNewPositionRejectsWrongLength(t *testing.T) {
	for _, coordinates := range [][]float64{{}, {1.0}, {1.0, 2.0, 3.0}} {
		_, err := NewPosition(coordinates)
		var validationErr *ValidationError
		assert.True(t, errors.As(err, &validationErr), "coordinates %v should be rejected", coordinates)
	}
}

func TestPositionJSONRoundTrip(t *testing.T) {
	position := Position{Lon: -80.13, Lat: 25.76}
	raw, err := json.Marshal(position)
	assert.NoError(t, err)
	assert.JSONEq(t, `[-80.13, 25.76]`, string(raw))

	var decoded Position
	assert.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, position, decoded)

	// 不正な座標はアンマーシャル時に検証で落ちる
	var invalid Position
	err = json.Unmarshal([]byte(`[500, 0]`), &invalid)
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestPointTypeMustBePoint(t *testing.T) {
	point := Point{Type: "Polygon", Coordinates: Position{Lon: 1, Lat: 2}}
	err := point.Validate()

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	assert.Equal(t, "geometry.type", validationErr.Field)
	assert.Contains(t, validationErr.Message, `"Point"`)
	assert.Contains(t, validationErr.Message, `"Polygon"`)
}

func TestNewFeatureDefaults(t *testing.T) {
	geometry := Point{Type: GeojsonTypePoint, Coordinates: Position{Lon: -80.13, Lat: 25.76}}
	properties := Props{Name: "  South Beach Lifeguard Station  ", Category: CategoryOther}

	feature, err := NewFeature(geometry, properties)
	assert.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, feature.ID)
	assert.Equal(t, GeojsonTypeFeature, feature.Type)
	assert.Equal(t, 0, feature.Version)
	assert.Equal(t, "South Beach Lifeguard Station", feature.Properties.Name)
	assert.Equal(t, feature.Properties.Created, feature.Properties.Updated)
}

func TestNewFeatureRejectsEmptyName(t *testing.T) {
	geometry := Point{Type: GeojsonTypePoint, Coordinates: Position{Lon: 1, Lat: 2}}
	_, err := NewFeature(geometry, Props{Name: "   ", Category: CategoryOther})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	assert.Equal(t, "properties.name", validationErr.Field)
}

func TestCategoryValidation(t *testing.T) {
	for _, category := range []Category{CategoryReefer, CategoryTobacco, CategoryOther} {
		assert.NoError(t, category.Validate())
	}

	err := Category("Snacks").Validate()
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestFeatureRequestToFeature(t *testing.T) {
	req := &FeatureRequest{
		Type: GeojsonTypeFeature,
		Geometry: PointRequest{
			Type:        GeojsonTypePoint,
			Coordinates: []float64{-80.13, 25.76},
		},
		Properties: PropsRequest{
			Name:     "South Beach Lifeguard Station",
			Category: CategoryOther,
		},
	}

	feature, err := req.ToFeature()
	assert.NoError(t, err)
	assert.Equal(t, -80.13, feature.Geometry.Coordinates.Lon)
	assert.Equal(t, 25.76, feature.Geometry.Coordinates.Lat)
	assert.Equal(t, CategoryOther, feature.Properties.Category)
}

func TestFeatureRequestRejectsWrongType(t *testing.T) {
	req := &FeatureRequest{
		Type: GeojsonTypePoint, // Featureでなければならない
		Geometry: PointRequest{
			Type:        GeojsonTypePoint,
			Coordinates: []float64{-80.13, 25.76},
		},
		Properties: PropsRequest{Name: "test", Category: CategoryOther},
	}

	_, err := req.ToFeature()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	assert.Equal(t, "type", validationErr.Field)
}

func TestUpdateFeatureRequestPatch(t *testing.T) {
	name := "new name"
	category := CategoryTobacco
	req := &UpdateFeatureRequest{Name: &name, Category: &category}

	patch := req.Patch()
	assert.Equal(t, map[string]any{"name": "new name", "category": "Tobacco"}, patch)

	empty := &UpdateFeatureRequest{}
	assert.Empty(t, empty.Patch())
}
