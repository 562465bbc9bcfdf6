package models

import (
	"time"

	"github.com/uptrace/bun"
)

type VisitCount struct {
	bun.BaseModel `bun:"table:visit_counts,alias:vc"`

	VisitorID string    `bun:",pk" json:"visitor_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Count     int       `bun:",notnull" json:"count"`
}
