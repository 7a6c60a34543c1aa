package ingredient

import (
	"net/http"
	"strings"

	"catering-planner/internal/api/handlers"
	ingredientCore "catering-planner/internal/core/ingredient"
	"catering-planner/internal/core/planner"
	"catering-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// ParseRequest 單行食材解析請求
type ParseRequest struct {
	Line string `json:"line" binding:"required"`
}

// ParseResponse 解析結果；Degraded 代表數量與單位都沒有辨識出來
type ParseResponse struct {
	common.ParsedIngredientLine
	Category common.Category `json:"category"`
	Degraded bool            `json:"degraded"`
}

// NormalizeRequest 名稱正規化請求
type NormalizeRequest struct {
	Name string `json:"name" binding:"required"`
}

// NormalizeResponse 正規化與分類結果
type NormalizeResponse struct {
	Name           string          `json:"name"`
	NormalizedName string          `json:"normalized_name"`
	Category       common.Category `json:"category"`
}

// SubstituteRequest 新增替代食材
type SubstituteRequest struct {
	Substitute string `json:"substitute" binding:"required"`
}

// Handler 食材處理程序
type Handler struct {
	planner *planner.Service
}

// NewHandler 創建食材處理程序
func NewHandler(p *planner.Service) *Handler {
	return &Handler{planner: p}
}

// Register 註冊 /ingredients 路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/ingredients")
	g.GET("", h.List)
	g.POST("/parse", h.Parse)
	g.POST("/normalize", h.Normalize)
	g.GET("/:id", h.Get)
	g.POST("/:id/substitutes", h.AddSubstitute)
}

// Parse 解析一行食材文字，不寫入目錄
func (h *Handler) Parse(c *gin.Context) {
	var req ParseRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Line) == "" {
		handlers.WriteError(c, common.NewValidationError("line is empty"))
		return
	}

	parsed := ingredientCore.ParseIngredientLine(req.Line)
	c.JSON(http.StatusOK, ParseResponse{
		ParsedIngredientLine: parsed,
		Category:             ingredientCore.CategorizeIngredient(parsed.Name),
		Degraded:             parsed.Degraded(),
	})
}

// Normalize 正規化食材名稱並分類
func (h *Handler) Normalize(c *gin.Context) {
	var req NormalizeRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, NormalizeResponse{
		Name:           req.Name,
		NormalizedName: ingredientCore.NormalizeIngredient(req.Name),
		Category:       ingredientCore.CategorizeIngredient(req.Name),
	})
}

// List 列出食材目錄
func (h *Handler) List(c *gin.Context) {
	items, err := h.planner.ListIngredients(c.Request.Context())
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": items})
}

// Get 取得單一食材
func (h *Handler) Get(c *gin.Context) {
	ing, err := h.planner.GetIngredient(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

// AddSubstitute 新增替代食材名稱
func (h *Handler) AddSubstitute(c *gin.Context) {
	var req SubstituteRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	ing, err := h.planner.AddSubstitute(c.Request.Context(), c.Param("id"), req.Substitute)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}
