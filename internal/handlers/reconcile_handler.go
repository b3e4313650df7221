package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vista-reconciliation-backend/internal/services/reconcile"
)

type ReconcileHandler struct {
	service *reconcile.Service
}

func NewReconcileHandler(s *reconcile.Service) *ReconcileHandler {
	return &ReconcileHandler{service: s}
}

// tenantFrom reads the tenant scoping every operation. The surrounding
// application authenticates the caller and forwards tenant and user ids as
// headers.
func tenantFrom(c *gin.Context) (uuid.UUID, bool) {
	tenant, err := uuid.Parse(c.GetHeader("X-Tenant-ID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid X-Tenant-ID header"})
		return uuid.Nil, false
	}
	return tenant, true
}

func actorFrom(c *gin.Context) (string, bool) {
	actor := c.GetHeader("X-User-ID")
	if actor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-User-ID header"})
		return "", false
	}
	return actor, true
}

func respondError(c *gin.Context, err error) {
	var verr *reconcile.ValidationError
	var nf *reconcile.NotFoundError
	var conflict *reconcile.ConflictError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":        conflict.Error(),
			"canonical_id": conflict.CanonicalID,
			"holder_id":    conflict.HolderID,
			"holder_key":   conflict.HolderKey,
			"holder_label": conflict.HolderLabel,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Import bulk-upserts extract rows for one entity type.
func (h *ReconcileHandler) Import(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Filename string          `json:"filename" binding:"required"`
		Rows     []reconcile.Row `json:"rows" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	batch, err := h.service.Import(c.Param("entityType"), tenant, payload.Rows, reconcile.ImportMeta{
		Filename:   payload.Filename,
		ImportedBy: actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": batch})
}

func (h *ReconcileHandler) AutoMatch(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	summary, err := h.service.AutoMatch(c.Param("entityType"), tenant)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReconcileHandler) FindDuplicates(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	minSimilarity := 0.0
	if raw := c.Query("min_similarity"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_similarity must be a number in [0,1]"})
			return
		}
		minSimilarity = v
	}
	groups, err := h.service.FindDuplicates(c.Param("entityType"), tenant, minSimilarity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicates": groups})
}

func (h *ReconcileHandler) DuplicateStats(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	stats, err := h.service.DuplicateStatsFor(c.Param("entityType"), tenant, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ReconcileHandler) Link(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	externalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}

	var payload struct {
		CanonicalID string `json:"canonical_id" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	canonicalID, err := uuid.Parse(payload.CanonicalID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid canonical ID"})
		return
	}

	rec, err := h.service.Link(c.Param("entityType"), tenant, externalID, canonicalID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

func (h *ReconcileHandler) Unlink(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	externalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}
	rec, err := h.service.Unlink(c.Param("entityType"), tenant, externalID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

func (h *ReconcileHandler) Ignore(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	externalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}
	rec, err := h.service.Ignore(c.Param("entityType"), tenant, externalID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

func (h *ReconcileHandler) Promote(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	summary, err := h.service.PromoteUnmatched(c.Param("entityType"), tenant, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReconcileHandler) Stats(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(tenant)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ReconcileHandler) ListRecords(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	records, nextCursor, hasMore, err := h.service.ListRecords(
		c.Param("entityType"), tenant,
		c.Query("status"), c.Query("cursor"), c.Query("search"), limit,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       records,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

func (h *ReconcileHandler) GetBatch(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		return
	}
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	batch, err := h.service.GetBatch(tenant, batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": batch})
}
