package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// parseID 解析路径参数里的数字 ID，非法时直接写 400 并返回 0
func parseID(ctx *gin.Context, key string) int64 {
	id, err := strconv.ParseInt(ctx.Param(key), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的 " + key,
		})
		return 0
	}
	return id
}
