package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nicklaros/stockengine/internal/domain/entities"
	"github.com/nicklaros/stockengine/internal/domain/repositories"
)

func movementFilterFromQuery(c *gin.Context) repositories.StockMovementFilter {
	var filter repositories.StockMovementFilter

	if raw := c.Query("type"); raw != "" {
		mt := entities.MovementType(raw)
		filter.MovementType = &mt
	}
	if raw := c.Query("start_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.FromDate = &t
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.ToDate = &t
		}
	}
	return filter
}

// listMovements handles GET /stock_movements.
func (s *Server) listMovements(c *gin.Context) {
	filter := movementFilterFromQuery(c)
	movements, page, err := s.query.Movements(c.Request.Context(), filter, s.paginationFromQuery(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondList(c, movements, page)
}

// getMovement handles GET /stock_movements/:id.
func (s *Server) getMovement(c *gin.Context) {
	movement, err := s.query.MovementByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondData(c, http.StatusOK, movement)
}
