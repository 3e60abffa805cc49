package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/usecase"
)

// StatusClientClosedRequest クライアントが接続を切った場合のステータス（nginx互換）
const StatusClientClosedRequest = 499

// VenueSearchHandler は店舗検索APIのハンドラー
type VenueSearchHandler struct {
	searchUseCase usecase.VenueSearchUseCase
}

// NewVenueSearchHandler は新しいVenueSearchHandlerインスタンスを作成
func NewVenueSearchHandler(searchUseCase usecase.VenueSearchUseCase) *VenueSearchHandler {
	return &VenueSearchHandler{searchUseCase: searchUseCase}
}

// RegisterRoutes はルーティングを登録する
func (h *VenueSearchHandler) RegisterRoutes(r gin.IRouter) {
	venues := r.Group("/venues")
	venues.POST("/search", h.PostVenueSearch)
	venues.GET("/reports/:id", h.GetReport)
}

// PostVenueSearch は店舗検索パイプラインを実行するエンドポイント
// POST /venues/search
func (h *VenueSearchHandler) PostVenueSearch(c *gin.Context) {
	var req model.VenueSearchRequest

	// リクエストボディのバインド
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}

	// 入力チェックはネットワーク呼び出し前にここで行う
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "バリデーションエラー",
			"details": err.Error(),
		})
		return
	}

	response, err := h.searchUseCase.Search(c.Request.Context(), &req)
	if err != nil {
		switch {
		case model.IsConfiguration(err):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "検索条件または設定が正しくありません",
				"details": err.Error(),
			})
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			status := StatusClientClosedRequest
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{
				"error":   "検索が途中で中断されました",
				"details": err.Error(),
				"partial": response,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "店舗検索に失敗しました",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetReport は保存済みレポートを取得するエンドポイント
// GET /venues/reports/:id
func (h *VenueSearchHandler) GetReport(c *gin.Context) {
	reportID := c.Param("id")
	if reportID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "report_idが指定されていません",
		})
		return
	}

	report, err := h.searchUseCase.GetReport(c.Request.Context(), reportID)
	if err != nil {
		if errors.Is(err, model.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "レポートが見つかりません",
				"details": err.Error(),
			})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "レポートの取得に失敗しました",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, report.ToResponse())
}
