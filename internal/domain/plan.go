package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan statuses. "generated" means the API returned the plan text inline;
// the others mirror the external task queue.
const (
	PlanStatusQueued     = "queued"
	PlanStatusProcessing = "processing"
	PlanStatusCompleted  = "completed"
	PlanStatusFailed     = "failed"
	PlanStatusGenerated  = "generated"
)

// PlanRecord is the local history entry for one plan-generation request.
type PlanRecord struct {
	PlanID           uuid.UUID      `gorm:"column:plan_id;type:uuid;primaryKey" json:"plan_id"`
	UserID           string         `gorm:"column:user_id;not null;index" json:"user_id"`
	OrganizationName string         `gorm:"column:organization_name;not null" json:"organization_name"`
	TaskID           *string        `gorm:"column:task_id;index" json:"task_id"`
	Status           string         `gorm:"column:status;not null;default:'queued'" json:"status"`
	Plan             *string        `gorm:"column:plan;type:text" json:"plan,omitempty"`
	Message          *string        `gorm:"column:message" json:"message,omitempty"`
	Inputs           datatypes.JSON `gorm:"column:inputs" json:"inputs"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PlanRecord) TableName() string {
	return "PlanRecords"
}

// BeforeCreate ensures plan_id is set for DBs without default uuid.
func (p *PlanRecord) BeforeCreate(tx *gorm.DB) error {
	if p.PlanID == uuid.Nil {
		p.PlanID = uuid.New()
	}
	return nil
}
