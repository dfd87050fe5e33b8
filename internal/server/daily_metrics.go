package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
)

type dailyMetricRow struct {
	Date               string                       `json:"date"`
	Revenue            float64                      `json:"revenue"`
	AdSpend            float64                      `json:"adSpend"`
	ShippingCost       float64                      `json:"shippingCost"`
	COGS               float64                      `json:"cogs"`
	TotalOrders        int64                        `json:"totalOrders"`
	NewCustomers       int64                        `json:"newCustomers"`
	ReturningCustomers int64                        `json:"returningCustomers"`
	Campaigns          []dailymetricdomain.Campaign `json:"campaigns,omitempty"`
}

type ingestDailyMetricsRequest struct {
	Source string           `json:"source"`
	Rows   []dailyMetricRow `json:"rows"`
}

func (s *Server) IngestDailyMetrics(c *gin.Context) {
	var req ingestDailyMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rows := make([]dailymetricdomain.MetricInput, 0, len(req.Rows))
	for i, row := range req.Rows {
		date, err := parseDate(fmt.Sprintf("rows[%d].date", i), row.Date)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		rows = append(rows, dailymetricdomain.MetricInput{
			Date:               date,
			Revenue:            row.Revenue,
			AdSpend:            row.AdSpend,
			ShippingCost:       row.ShippingCost,
			COGS:               row.COGS,
			TotalOrders:        row.TotalOrders,
			NewCustomers:       row.NewCustomers,
			ReturningCustomers: row.ReturningCustomers,
			Campaigns:          row.Campaigns,
		})
	}

	result, err := s.metricSvc.Ingest(c.Request.Context(), dailymetricdomain.IngestRequest{
		UserID: userIDFromContext(c),
		Source: strings.TrimSpace(req.Source),
		Rows:   rows,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) DeleteDailyMetrics(c *gin.Context) {
	start, end, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID := strings.TrimSpace(c.Param("userId"))
	deleted, err := s.metricSvc.Delete(c.Request.Context(), dailymetricdomain.DeleteRequest{
		UserID: userID,
		Start:  start,
		End:    end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"userId": userID, "deleted": deleted}})
}
