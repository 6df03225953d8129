package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

type transactionRequest struct {
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
}

// parseFilter reads the optional query parameters type, category,
// min_amount, max_amount, start, end and q. Dates without an offset are UTC.
func parseFilter(c *gin.Context) (*model.TransactionFilter, error) {
	filter := &model.TransactionFilter{
		Category:   c.Query("category"),
		SearchText: c.Query("q"),
	}

	if raw := c.Query("type"); raw != "" {
		t, err := parseType(raw)
		if err != nil {
			return nil, err
		}
		filter.Type = t
	}

	amounts := []struct {
		dst *float64
		key string
	}{
		{key: "min_amount", dst: &filter.MinAmount},
		{key: "max_amount", dst: &filter.MaxAmount},
	}
	for _, a := range amounts {
		raw := c.Query(a.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q is not a number", common.ErrInvalidArgument, a.key, raw)
		}
		*a.dst = v
	}

	dates := []struct {
		dst **model.DateBound
		key string
	}{
		{key: "start", dst: &filter.StartDate},
		{key: "end", dst: &filter.EndDate},
	}
	for _, d := range dates {
		raw := c.Query(d.key)
		if raw == "" {
			continue
		}
		bound, err := model.ParseDateBound(raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", common.ErrInvalidArgument, d.key, err)
		}
		*d.dst = &bound
	}

	return filter, nil
}

func (s *Server) listTransactions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	txns, err := sessionFrom(c).Transactions.Query(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	c.JSON(http.StatusOK, txns)
}

func (s *Server) summarizeTransactions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	summary, err := sessionFrom(c).Transactions.Summarize(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) addTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := parseType(req.Type)
	if err != nil {
		writeError(c, err)
		return
	}

	id, err := sessionFrom(c).Transactions.Add(c.Request.Context(), model.Transaction{
		Type:        t,
		Category:    req.Category,
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) getTransaction(c *gin.Context) {
	txn, err := sessionFrom(c).Transactions.Get(c.Request.Context(), c.Param("txid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (s *Server) updateTransaction(c *gin.Context) {
	var update model.TransactionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	if update.Type != nil {
		t, err := parseType(string(*update.Type))
		if err != nil {
			writeError(c, err)
			return
		}
		update.Type = &t
	}

	changed, err := sessionFrom(c).Transactions.Update(c.Request.Context(), c.Param("txid"), update)
	if err != nil {
		writeError(c, err)
		return
	}
	if !changed {
		writeError(c, fmt.Errorf("transaction %q: %w", c.Param("txid"), common.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (s *Server) deleteTransaction(c *gin.Context) {
	removed, err := sessionFrom(c).Transactions.Delete(c.Request.Context(), c.Param("txid"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !removed {
		writeError(c, fmt.Errorf("transaction %q: %w", c.Param("txid"), common.ErrNotFound))
		return
	}
	c.Status(http.StatusNoContent)
}
