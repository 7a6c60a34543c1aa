package recipe

import (
	"net/http"

	"catering-planner/internal/api/handlers"
	"catering-planner/internal/core/planner"
	"catering-planner/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ScaleRequest 手動縮放請求
type ScaleRequest struct {
	TargetServings float64 `json:"target_servings" binding:"required"`
	Save           bool    `json:"save"`
}

// Handler 食譜處理程序
type Handler struct {
	planner *planner.Service
}

// NewHandler 創建新的食譜處理程序
func NewHandler(p *planner.Service) *Handler {
	return &Handler{planner: p}
}

// Register 註冊 /recipes 路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/recipes")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/parse", h.Parse)
	g.POST("/:id/scale", h.Scale)
}

// Create 建立食譜；parse 為 true 時同時解析食材
func (h *Handler) Create(c *gin.Context) {
	var req planner.RecipeInput
	if !handlers.BindJSON(c, &req) {
		return
	}
	r, err := h.planner.CreateRecipe(c.Request.Context(), req)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// List 列出食譜
func (h *Handler) List(c *gin.Context) {
	recipes, err := h.planner.ListRecipes(c.Request.Context())
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// Get 取得食譜
func (h *Handler) Get(c *gin.Context) {
	r, err := h.planner.GetRecipe(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Parse 重新解析食譜食材並更新目錄
func (h *Handler) Parse(c *gin.Context) {
	r, err := h.planner.ParseRecipe(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Scale 縮放食譜；縮放策略失敗時仍回傳 200 與 scaling_failed
func (h *Handler) Scale(c *gin.Context) {
	var req ScaleRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	common.LogInfo("開始縮放食譜",
		zap.String("recipe_id", id),
		zap.Float64("target_servings", req.TargetServings),
		zap.Bool("save", req.Save),
		zap.String("request_id", requestid.Get(c)),
	)

	scaled, err := h.planner.ScaleRecipe(c.Request.Context(), id, req.TargetServings, req.Save)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, scaled)
}
