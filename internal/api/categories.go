package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

type upsertCategoryRequest struct {
	Type    string `json:"type" binding:"required"`
	Name    string `json:"name" binding:"required"`
	OldName string `json:"old_name"`
}

func parseType(raw string) (model.TransactionType, error) {
	t, ok := model.ParseTransactionType(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown transaction type %q", common.ErrInvalidArgument, raw)
	}
	return t, nil
}

func (s *Server) listCategories(c *gin.Context) {
	session := sessionFrom(c)
	types := model.TransactionTypes
	if raw := c.Query("type"); raw != "" {
		t, err := parseType(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		types = []model.TransactionType{t}
	}

	categories := []model.Category{}
	for _, t := range types {
		found, err := session.Categories.ListByType(c.Request.Context(), t)
		if err != nil {
			writeError(c, err)
			return
		}
		categories = append(categories, found...)
	}
	c.JSON(http.StatusOK, categories)
}

func (s *Server) upsertCategory(c *gin.Context) {
	var req upsertCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := parseType(req.Type)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := sessionFrom(c).Categories.Upsert(c.Request.Context(), t, req.Name, req.OldName)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (s *Server) deleteCategory(c *gin.Context) {
	t, err := parseType(c.Param("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	strategy := model.StrategyBlock
	if raw := c.Query("strategy"); raw != "" {
		parsed, ok := model.ParseDeleteStrategy(raw)
		if !ok {
			writeError(c, fmt.Errorf("%w: unknown strategy %q", common.ErrInvalidArgument, raw))
			return
		}
		strategy = parsed
	}

	result, err := sessionFrom(c).Categories.DeleteSafe(c.Request.Context(), t, c.Param("name"), strategy, c.Query("reassign_to"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) otherCategories(c *gin.Context) {
	t, err := parseType(c.Param("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	others, err := sessionFrom(c).Categories.OtherCategories(c.Request.Context(), t, c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	if others == nil {
		others = []model.Category{}
	}
	c.JSON(http.StatusOK, others)
}

func (s *Server) countCategoryTransactions(c *gin.Context) {
	t, err := parseType(c.Param("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	count, err := sessionFrom(c).Categories.CountTransactions(c.Request.Context(), t, c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
