package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"maintenance_center/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      Action journal
// @Description  Filter journal entries by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'), type and machine. A date-only 'to' covers the whole day.
// @Tags         journal
// @Produce      json
// @Param        from       query   string  false  "Start of range"  example(2025-08-01)
// @Param        to         query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        type       query   string  false  "Entry type, e.g. BEGIN_INSPECTION, ACTION_FAILED, STATUS_CHANGE"
// @Param        machineId  query   string  false  "Machine id"
// @Success      200   {object}  map[string]interface{}  "count, entries"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/journal [get]
// @Security     BearerAuth
func (h *Handler) getJournal(c *gin.Context) {
	var (
		from time.Time
		to   time.Time
		err  error
	)
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}

	filter := service.JournalFilter{
		From:      from,
		To:        to,
		Type:      c.Query("type"),
		MachineID: c.Query("machineId"),
	}
	entries, err := h.services.ListJournal(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "journal_list_failed", err, "from", from, "to", to, "type", filter.Type)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
