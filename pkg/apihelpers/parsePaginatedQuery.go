package apihelpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

type PaginatedQuery struct {
	Page  int64
	Limit int64
}

func ParsePaginatedQueryFromCtx(c *gin.Context) (*PaginatedQuery, error) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil {
		return nil, err
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil {
		return nil, err
	}

	return &PaginatedQuery{
		Page:  page,
		Limit: limit,
	}, nil
}
