package kvsync

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gaolamthuy/glt-backend/kiotviet"
	"github.com/gaolamthuy/glt-backend/models"
	"github.com/gaolamthuy/glt-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// APIKeyMiddleware rejects requests without the shared key in either
// the X-API-Key header or an Authorization bearer token. With no
// API_KEY configured the surface stays closed.
func APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		want := os.Getenv("API_KEY")
		if want == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "API_KEY is not configured",
			})
			return
		}
		got := c.GetHeader("X-API-Key")
		if got == "" {
			got = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if got != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid API key",
			})
			return
		}
		c.Next()
	}
}

// API bundles the dependencies of the HTTP trigger surface.
type API struct {
	Orchestrator *Orchestrator
	Tokens       *kiotviet.TokenProvider
	DB           *gorm.DB
	Logger       *logrus.Logger
	Earliest     time.Time
}

type triggerRequest struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Historical   bool   `json:"historical"`
	WindowMonths int    `json:"window_months"`
}

// TriggerSyncHandler runs one entity sync synchronously and maps the
// outcome onto the status code: 200 ok, 207 partial, 500 failed.
func (a *API) TriggerSyncHandler(c *gin.Context) {
	entity, err := ParseEntity(c.Param("entity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req triggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	opts := RunOptions{
		Entity:       entity,
		Historical:   req.Historical,
		WindowMonths: req.WindowMonths,
		Earliest:     a.Earliest,
		TriggeredBy:  models.SyncTriggeredAPI,
	}
	if req.From != "" {
		t, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from: want YYYY-MM-DD"})
			return
		}
		opts.From = &t
	}
	if req.To != "" {
		t, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to: want YYYY-MM-DD"})
			return
		}
		opts.To = &t
	}
	if req.Historical && !entity.DateRanged() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "historical mode only applies to invoices and purchaseorders",
		})
		return
	}

	fields := logrus.Fields{"module": "kvsync", "entity": entity}
	if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
		fields["correlation_id"] = cid
	}
	a.Logger.WithFields(fields).Info("sync triggered over http")

	summary, _ := a.Orchestrator.Run(c.Request.Context(), opts)
	switch summary.Status {
	case models.SyncRunStatusOk:
		c.JSON(http.StatusOK, summary)
	case models.SyncRunStatusPartial:
		c.JSON(http.StatusMultiStatus, summary)
	default:
		c.JSON(http.StatusInternalServerError, summary)
	}
}

// SyncRunsHandler lists recent runs, newest first.
func (a *API) SyncRunsHandler(c *gin.Context) {
	var runs []models.SyncRun
	q := a.DB.Order("started_at DESC").Limit(50)
	if entity := c.Query("entity"); entity != "" {
		if _, err := ParseEntity(entity); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q = q.Where("entity = ?", entity)
	}
	if err := q.Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// SyncRunDetailHandler returns one run with its error samples.
func (a *API) SyncRunDetailHandler(c *gin.Context) {
	var run models.SyncRun
	if err := a.DB.Take(&run, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "sync run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var errs []models.SyncRunError
	if err := a.DB.Where("sync_run_id = ?", run.ID).Find(&errs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "errors": errs})
}

// TokenInspectHandler reports whether a usable upstream token is on
// hand without exposing its value.
func (a *API) TokenInspectHandler(c *gin.Context) {
	cred, valid, err := a.Tokens.Inspect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	body := gin.H{"valid": valid}
	if cred != nil && !cred.ExpiresAt.IsZero() {
		body["expires_at"] = cred.ExpiresAt
	}
	c.JSON(http.StatusOK, body)
}
