package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	assistantdomain "github.com/smallbiznis/pulseboard/internal/assistant/domain"
)

type askRequest struct {
	Question string `json:"question"`
	Locale   string `json:"locale"`
	Currency string `json:"currency"`
}

func (s *Server) AskAssistant(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	answer, err := s.assistantSvc.Ask(c.Request.Context(), assistantdomain.AskRequest{
		UserID:   userIDFromContext(c),
		Question: req.Question,
		Locale:   req.Locale,
		Currency: req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": answer})
}
