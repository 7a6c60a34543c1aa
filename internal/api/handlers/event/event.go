package event

import (
	"net/http"

	"catering-planner/internal/api/handlers"
	"catering-planner/internal/core/planner"
	"catering-planner/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 活動、過敏紀錄與菜單縮放處理程序
type Handler struct {
	planner *planner.Service
}

// NewHandler 創建活動處理程序
func NewHandler(p *planner.Service) *Handler {
	return &Handler{planner: p}
}

// Register 註冊 /events 路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/events")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)

	g.GET("/:id/allergies", h.ListAllergies)
	g.POST("/:id/allergies", h.AddAllergy)
	g.PUT("/:id/allergies/:aid", h.UpdateAllergy)
	g.DELETE("/:id/allergies/:aid", h.DeleteAllergy)

	g.GET("/:id/recipes/:rid/conflicts", h.RecipeConflicts)
	g.GET("/:id/conflicts", h.MenuConflicts)
	g.GET("/:id/safe-recipes", h.SafeRecipes)
	g.POST("/:id/scale-menu", h.ScaleMenu)
}

// Create 建立活動
func (h *Handler) Create(c *gin.Context) {
	var req planner.EventInput
	if !handlers.BindJSON(c, &req) {
		return
	}
	e, err := h.planner.CreateEvent(c.Request.Context(), req)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// Get 取得活動
func (h *Handler) Get(c *gin.Context) {
	e, err := h.planner.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ListAllergies 列出活動的過敏紀錄
func (h *Handler) ListAllergies(c *gin.Context) {
	records, err := h.planner.ListAllergies(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allergies": records})
}

// AddAllergy 新增過敏紀錄
func (h *Handler) AddAllergy(c *gin.Context) {
	var req planner.AllergyInput
	if !handlers.BindJSON(c, &req) {
		return
	}
	res, err := h.planner.AddAllergy(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	logStale(c, res.Stale)
	c.JSON(http.StatusCreated, res)
}

// UpdateAllergy 更新過敏紀錄
func (h *Handler) UpdateAllergy(c *gin.Context) {
	var req planner.AllergyInput
	if !handlers.BindJSON(c, &req) {
		return
	}
	res, err := h.planner.UpdateAllergy(c.Request.Context(), c.Param("id"), c.Param("aid"), req)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	logStale(c, res.Stale)
	c.JSON(http.StatusOK, res)
}

// DeleteAllergy 刪除過敏紀錄
func (h *Handler) DeleteAllergy(c *gin.Context) {
	if err := h.planner.DeleteAllergy(c.Request.Context(), c.Param("id"), c.Param("aid")); err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecipeConflicts 檢查單一食譜與活動過敏紀錄的衝突
func (h *Handler) RecipeConflicts(c *gin.Context) {
	report, err := h.planner.RecipeConflicts(c.Request.Context(), c.Param("id"), c.Param("rid"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipe_id":        c.Param("rid"),
		"people":           report.People(),
		"conflicts":        report.Conflicts,
		"stale_references": report.Stale,
	})
}

// MenuConflicts 逐一檢查菜單上的食譜
func (h *Handler) MenuConflicts(c *gin.Context) {
	reports, err := h.planner.MenuConflicts(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": reports})
}

// SafeRecipes 列出沒有任何過敏衝突的食譜
func (h *Handler) SafeRecipes(c *gin.Context) {
	res, err := h.planner.SafeRecipes(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	logStale(c, res.Stale)
	c.JSON(http.StatusOK, res)
}

// ScaleMenu 依出席人數縮放整份菜單
func (h *Handler) ScaleMenu(c *gin.Context) {
	common.LogInfo("開始縮放活動菜單",
		zap.String("event_id", c.Param("id")),
		zap.String("request_id", requestid.Get(c)),
	)
	res, err := h.planner.ScaleMenu(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	if len(res.Failed) > 0 {
		common.LogWarn("部分食譜縮放失敗",
			zap.String("event_id", res.EventID),
			zap.Strings("failed", res.Failed),
		)
	}
	c.JSON(http.StatusOK, res)
}

func logStale(c *gin.Context, stale []common.StaleReference) {
	if len(stale) == 0 {
		return
	}
	refs := make([]string, len(stale))
	for i, s := range stale {
		refs[i] = s.String()
	}
	common.LogWarn("過期的食材引用",
		zap.Strings("stale", refs),
		zap.String("request_id", requestid.Get(c)),
	)
}
