// Package audit records who changed which record, with the state before and
// after the change.
package audit

import (
	"encoding/json"
	"fmt"

	"silvess-backend/internal/auth"
	"silvess-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	Actor       auth.Principal
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog appends an audit entry inside tx, so it is only kept when the
// change it describes commits.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	log := models.AuditLog{
		UserID:      opts.Actor.UserID,
		UserName:    opts.Actor.Name,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  encode(opts.Before),
		AfterData:   encode(opts.After),
	}

	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func encode(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
