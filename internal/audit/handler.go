package audit

import (
	"encoding/json"
	"time"

	"silvess-backend/internal/httpx"
	"silvess-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Before      json.RawMessage    `json:"before"`
	After       json.RawMessage    `json:"after"`
}

const defaultLimit = 200

// GET /api/audit-logs?entity_type=ingredient&entity_id=1&user_id=2&limit=50
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if uid := httpx.QueryUint(c, "user_id"); uid != nil {
			dbq = dbq.Where("user_id = ?", *uid)
		}
		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if eid := httpx.QueryUint(c, "entity_id"); eid != nil {
			dbq = dbq.Where("entity_id = ?", *eid)
		}

		limit := c.QueryInt("limit", defaultLimit)
		if limit <= 0 || limit > 1000 {
			limit = defaultLimit
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format(time.RFC3339),
				UserID:      log.UserID,
				UserName:    log.UserName,
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
				Before:      raw(log.BeforeData),
				After:       raw(log.AfterData),
			})
		}

		return c.JSON(resp)
	}
}

func raw(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}
