package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Dashboard 返回某天的汇总：活动、情绪、饮食和习惯完成度
func (a *API) Dashboard(c *gin.Context) {
	day, ok := a.dayQuery(c)
	if !ok {
		return
	}

	summary, err := a.analytics.Daily(currentUserID(c), day)
	if err != nil {
		respondServiceError(c, err, "数据不存在", "加载仪表盘失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// Weekly 返回截至某天的七日快照和健康分析
func (a *API) Weekly(c *gin.Context) {
	day, ok := a.dayQuery(c)
	if !ok {
		return
	}

	snapshot, err := a.analytics.Weekly(currentUserID(c), day)
	if err != nil {
		respondServiceError(c, err, "数据不存在", "生成周报失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"weekly": snapshot})
}

// Recommendation 返回当天的个性化建议，refresh=1 时强制重新生成
func (a *API) Recommendation(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

	result, err := a.recommendations.Generate(c.Request.Context(), currentUserID(c), a.today(), refresh)
	if err != nil {
		respondServiceError(c, err, "建议不存在", "生成建议失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendation": result})
}
