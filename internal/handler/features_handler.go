package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"MapMarkr-App/internal/domain/model"
	"MapMarkr-App/internal/usecase"

	"github.com/gin-gonic/gin"
)

// FeaturesHandler 地点記録に関するHTTPハンドラー
type FeaturesHandler struct {
	featuresUseCase usecase.FeaturesUseCase
}

// NewFeaturesHandler FeaturesHandlerの新しいインスタンスを作成
func NewFeaturesHandler(featuresUseCase usecase.FeaturesUseCase) *FeaturesHandler {
	return &FeaturesHandler{
		featuresUseCase: featuresUseCase,
	}
}

// CreateFeature POST /features - 地点記録の作成
func (h *FeaturesHandler) CreateFeature(c *gin.Context) {
	var req model.FeatureRequest

	// リクエストボディの解析（Ginが自動でContent-Type確認）
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	feature, err := h.featuresUseCase.Create(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to create feature")
		return
	}

	c.JSON(http.StatusCreated, feature)
}

// GetFeature GET /features/:id - 地点記録の取得
func (h *FeaturesHandler) GetFeature(c *gin.Context) {
	feature, err := h.featuresUseCase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get feature")
		return
	}
	c.JSON(http.StatusOK, feature)
}

// ListFeatures GET /features - 地点記録の一覧取得
// クエリパラメータ: category, limit, bbox (min_lng,min_lat,max_lng,max_lat)
func (h *FeaturesHandler) ListFeatures(c *gin.Context) {
	limit, ok := h.intQuery(c, "limit", 0)
	if !ok {
		return
	}

	if bbox := c.Query("bbox"); bbox != "" {
		h.listFeaturesByBoundingBox(c, bbox, limit)
		return
	}

	collection, err := h.featuresUseCase.List(c.Request.Context(), c.Query("category"), limit)
	if err != nil {
		h.respondError(c, err, "Failed to list features")
		return
	}
	c.JSON(http.StatusOK, collection)
}

// listFeaturesByBoundingBox bboxクエリによる絞り込み
func (h *FeaturesHandler) listFeaturesByBoundingBox(c *gin.Context, bbox string, limit int) {
	coords := strings.Split(bbox, ",")
	if len(coords) != 4 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": "bbox must contain 4 coordinates: min_lng,min_lat,max_lng,max_lat",
		})
		return
	}

	values := make([]float64, 4)
	for i, coord := range coords {
		value, err := strconv.ParseFloat(coord, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_parameter",
				"message": "Invalid bbox coordinate: " + coord,
			})
			return
		}
		values[i] = value
	}

	collection, err := h.featuresUseCase.ListByBoundingBox(c.Request.Context(), values[0], values[1], values[2], values[3], limit)
	if err != nil {
		h.respondError(c, err, "Failed to list features")
		return
	}
	c.JSON(http.StatusOK, collection)
}

// PageFeatures GET /features/page - ページネーションつき一覧
// クエリパラメータ: category, limit, offset, order_by (name|created|updated), descending
func (h *FeaturesHandler) PageFeatures(c *gin.Context) {
	limit, ok := h.intQuery(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := h.intQuery(c, "offset", 0)
	if !ok {
		return
	}
	descending := c.Query("descending") == "true"

	page, err := h.featuresUseCase.Page(c.Request.Context(), c.Query("category"), limit, offset, c.Query("order_by"), descending)
	if err != nil {
		h.respondError(c, err, "Failed to page features")
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdateFeature PUT /features/:id - 地点記録の更新
func (h *FeaturesHandler) UpdateFeature(c *gin.Context) {
	var req model.UpdateFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	feature, err := h.featuresUseCase.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err, "Failed to update feature")
		return
	}
	c.JSON(http.StatusOK, feature)
}

// DeleteFeature DELETE /features/:id - 地点記録の削除（冪等）
func (h *FeaturesHandler) DeleteFeature(c *gin.Context) {
	if err := h.featuresUseCase.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete feature")
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateFeatures POST /features/bulk - 地点記録の一括作成
func (h *FeaturesHandler) CreateFeatures(c *gin.Context) {
	var req model.FeatureCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	collection, err := h.featuresUseCase.CreateAll(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to create features")
		return
	}
	c.JSON(http.StatusCreated, collection)
}

// intQuery 数値クエリパラメータの解析。不正な値は400を返してfalse
func (h *FeaturesHandler) intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	value := c.Query(name)
	if value == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": "Invalid " + name + " value: " + value,
		})
		return 0, false
	}
	return parsed, true
}

// respondError エラー種別をHTTPステータスに対応づける
func (h *FeaturesHandler) respondError(c *gin.Context, err error, message string) {
	var validationErr *model.ValidationError
	var notFoundErr *model.NotFoundError
	var storeErr *model.StoreUnavailableError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": validationErr.Error(),
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": notFoundErr.Error(),
		})
	case errors.As(err, &storeErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "store_unavailable",
			"message": message + ": " + err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": message + ": " + err.Error(),
		})
	}
}
