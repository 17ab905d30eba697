package matches

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/usv-planning/matchboard/internal/store"
)

// ----- Error mapping -----

// writeError maps domain and store errors to a status code.
func writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// writeSaved answers a successful write. A partial save was kept locally
// only, so it is reported as accepted with a warning.
func writeSaved(c *gin.Context, code int, body any, err error) {
	if errors.Is(err, store.ErrPartialSave) {
		c.JSON(http.StatusAccepted, gin.H{"data": body, "warning": err.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if body == nil {
		c.Status(code)
		return
	}
	c.JSON(code, body)
}

func bindDraft(c *gin.Context) (Draft, bool) {
	var d Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
		return d, false
	}
	if err := d.Validate(); err != nil {
		writeError(c, err)
		return d, false
	}
	return d, true
}

// ----- Routes -----

func RegisterRoutes(r *gin.Engine, repo *Repository) {
	api := r.Group("/api")
	{
		// Import matches from CSV or XLSX
		api.POST("/matches/import", func(c *gin.Context) {
			if err := c.Request.ParseMultipartForm(12 << 20); err != nil { // 12MB
				c.JSON(http.StatusBadRequest, gin.H{"error": "multipart too large"})
				return
			}
			fh, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
				return
			}

			rows, err := parseImport(fh)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			drafts := make([]Draft, 0, len(rows))
			errs := []string{}
			for _, row := range rows {
				if row.Err != nil {
					errs = append(errs, fmt.Sprintf("row %d: %v", row.Line, row.Err))
					continue
				}
				drafts = append(drafts, row.Draft)
			}
			ids, err := repo.CreateMany(c.Request.Context(), drafts)
			body := gin.H{"imported": len(ids), "failed": len(errs), "errors": errs, "ids": ids}
			writeSaved(c, http.StatusOK, body, err)
		})

		// iCal export of all valid matches
		api.GET("/matches.ics", func(c *gin.Context) {
			list := repo.Valid(c.Request.Context())

			c.Header("Content-Type", "text/calendar; charset=utf-8")
			c.Header("Content-Disposition", "attachment; filename=matches.ics")
			writeICS(c.Writer, list, time.Now())
		})

		// CSV export; the header row is accepted back by the importer
		api.GET("/matches.csv", func(c *gin.Context) {
			list := repo.List(c.Request.Context())

			filename := fmt.Sprintf("matches_%s.csv", repo.Now().Format("2006-01-02"))
			c.Header("Content-Type", "text/csv; charset=utf-8")
			c.Header("Content-Disposition", "attachment; filename="+filename)

			w := csv.NewWriter(c.Writer)
			if err := writeCSV(w, list); err != nil {
				c.String(http.StatusInternalServerError, err.Error())
				return
			}
		})

		api.GET("/matches", func(c *gin.Context) {
			c.JSON(http.StatusOK, repo.List(c.Request.Context()))
		})

		api.GET("/matches/:id", func(c *gin.Context) {
			m, err := repo.Get(c.Request.Context(), ID(c.Param("id")))
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, m)
		})

		api.GET("/admin/matches", func(c *gin.Context) {
			c.JSON(http.StatusOK, repo.Valid(c.Request.Context()))
		})

		api.GET("/week", func(c *gin.Context) {
			ref := repo.Now()
			if q := c.Query("date"); q != "" {
				t, err := time.ParseInLocation("2006-01-02", q, repo.Location())
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
					return
				}
				ref = t
			}
			c.JSON(http.StatusOK, repo.Week(c.Request.Context(), ref))
		})

		api.POST("/matches", func(c *gin.Context) {
			d, ok := bindDraft(c)
			if !ok {
				return
			}
			row, err := repo.Create(c.Request.Context(), d)
			writeSaved(c, http.StatusCreated, row, err)
		})

		api.PUT("/matches/:id", func(c *gin.Context) {
			d, ok := bindDraft(c)
			if !ok {
				return
			}
			row, err := repo.Update(c.Request.Context(), ID(c.Param("id")), d)
			if errors.Is(err, ErrNotFound) {
				writeError(c, err)
				return
			}
			writeSaved(c, http.StatusOK, row, err)
		})

		api.DELETE("/matches/:id", func(c *gin.Context) {
			err := repo.Delete(c.Request.Context(), ID(c.Param("id")))
			if errors.Is(err, ErrNotFound) {
				writeError(c, err)
				return
			}
			writeSaved(c, http.StatusNoContent, nil, err)
		})
	}
}

// ----- Export -----

const matchDuration = 2 * time.Hour

var csvHeader = []string{
	"id", "datetime", "homeTeam", "awayTeam", "venue",
	"status", "competition", "scoreHome", "scoreAway",
}

func writeCSV(w *csv.Writer, list []Record) error {
	itoa := func(p *int) string {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	}
	_ = w.Write(csvHeader)
	for _, m := range list {
		_ = w.Write([]string{
			m.ID.String(), m.Datetime, m.HomeTeam, m.AwayTeam, m.Venue,
			string(m.Status.Canonical()), m.Competition, itoa(m.ScoreHome), itoa(m.ScoreAway),
		})
	}
	w.Flush()
	return w.Error()
}

// Escape commas and semicolons per RFC
var icsEscaper = strings.NewReplacer(",", "\\,", ";", "\\;", "\n", "\\n")

func writeICS(w io.Writer, list []Entry, stamp time.Time) {
	const layout = "20060102T150405Z"
	fmt.Fprint(w, "BEGIN:VCALENDAR\r\n")
	fmt.Fprint(w, "VERSION:2.0\r\n")
	fmt.Fprint(w, "PRODID:-//usv//matchboard//FR\r\n")
	fmt.Fprint(w, "CALSCALE:GREGORIAN\r\n")

	now := stamp.UTC().Format(layout)
	for _, m := range list {
		fmt.Fprint(w, "BEGIN:VEVENT\r\n")
		fmt.Fprintf(w, "UID:match-%s@usv-matchboard\r\n", m.ID)
		fmt.Fprintf(w, "DTSTAMP:%s\r\n", now)
		fmt.Fprintf(w, "DTSTART:%s\r\n", m.Start.UTC().Format(layout))
		fmt.Fprintf(w, "DTEND:%s\r\n", m.Start.Add(matchDuration).UTC().Format(layout))
		fmt.Fprintf(w, "SUMMARY:%s\r\n", icsEscaper.Replace(m.HomeTeam+" vs "+m.AwayTeam))
		if m.Venue != "" {
			fmt.Fprintf(w, "LOCATION:%s\r\n", icsEscaper.Replace(m.Venue))
		}
		desc := m.StatusLabel
		if m.CompetitionLabel != "" {
			desc = m.CompetitionLabel + " - " + desc
		}
		if m.Score != "" {
			desc += " (" + m.Score + ")"
		}
		fmt.Fprintf(w, "DESCRIPTION:%s\r\n", icsEscaper.Replace(desc))
		fmt.Fprint(w, "END:VEVENT\r\n")
	}
	fmt.Fprint(w, "END:VCALENDAR\r\n")
}
