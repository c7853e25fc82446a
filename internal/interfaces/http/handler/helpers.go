package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/vidgen/backend/internal/domain/shared"
	"github.com/vidgen/backend/internal/interfaces/http/dto"
)

// bindPage reads offset/limit query parameters, falling back to defaults
// when absent or malformed.
func bindPage(c *gin.Context) shared.Page {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return shared.DefaultPage()
	}
	if req.Limit == 0 {
		req.Limit = shared.DefaultPage().Limit
	}
	return shared.Page{Offset: req.Offset, Limit: req.Limit}.Normalize()
}
