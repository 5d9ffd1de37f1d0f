package model

import (
	"time"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
)

// CandidateStatus is the coarse lifecycle of a candidate.
type CandidateStatus string

const (
	CandidateStatusPending   CandidateStatus = "pending"
	CandidateStatusActive    CandidateStatus = "active"
	CandidateStatusCompleted CandidateStatus = "completed"
	CandidateStatusRejected  CandidateStatus = "rejected"
)

// User is a login account.
type User struct {
	BaseModel
	Email        string     `gorm:"type:varchar(255);column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);column:password_hash;not null" json:"-"`
	Role         model.Role `gorm:"type:varchar(20);column:role;not null" json:"role"`
	FirstName    string     `gorm:"type:varchar(100);column:first_name" json:"firstName"`
	LastName     string     `gorm:"type:varchar(100);column:last_name" json:"lastName"`
	CandidateID  *uint      `gorm:"column:candidate_id;index" json:"candidateId,omitempty"` // Set for candidate accounts
}

func (u *User) TableName() string {
	return "users"
}

// Candidate is a person being onboarded.
type Candidate struct {
	BaseModel
	FirstName  string          `gorm:"type:varchar(100);column:first_name;not null" json:"firstName"`
	LastName   string          `gorm:"type:varchar(100);column:last_name" json:"lastName"`
	Email      string          `gorm:"type:varchar(255);column:email;uniqueIndex;not null" json:"email"`
	Phone      string          `gorm:"type:varchar(50);column:phone" json:"phone,omitempty"`
	Position   string          `gorm:"type:varchar(100);column:position" json:"position"`
	Department string          `gorm:"type:varchar(100);column:department" json:"department"`
	Status     CandidateStatus `gorm:"type:varchar(20);column:status;not null;default:'pending'" json:"status"`
	Progress   int             `gorm:"column:progress;not null;default:0" json:"progress"` // 0-100
	StartDate  *time.Time      `gorm:"column:start_date" json:"startDate,omitempty"`
}

func (c *Candidate) TableName() string {
	return "candidates"
}

func (c *Candidate) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// StepRecord is the stored state of one onboarding step for one candidate.
type StepRecord struct {
	BaseModel
	CandidateID uint             `gorm:"column:candidate_id;not null;uniqueIndex:idx_candidate_step" json:"candidateId"`
	StepID      model.StepID     `gorm:"type:varchar(50);column:step_id;not null;uniqueIndex:idx_candidate_step" json:"stepId"`
	Status      model.StepStatus `gorm:"type:varchar(20);column:status;not null" json:"status"`
	Data        JSONData         `gorm:"type:text;column:data" json:"data"`
}

func (s *StepRecord) TableName() string {
	return "onboarding_steps"
}

// Activity is an audit line shown on the HR dashboard.
type Activity struct {
	ID            uint             `gorm:"primaryKey;column:id" json:"id"`
	CandidateID   uint             `gorm:"column:candidate_id;index;not null" json:"candidateId"`
	CandidateName string           `gorm:"type:varchar(200);column:candidate_name" json:"candidateName"`
	StepID        model.StepID     `gorm:"type:varchar(50);column:step_id" json:"stepId"`
	Status        model.StepStatus `gorm:"type:varchar(20);column:status" json:"status"`
	Message       string           `gorm:"type:text;column:message" json:"message"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}

func (a *Activity) TableName() string {
	return "activities"
}

// Notification is a stored user notification.
type Notification struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	UserEmail string    `gorm:"type:varchar(255);column:user_email;index;not null" json:"userEmail"`
	Type      string    `gorm:"type:varchar(20);column:type;not null" json:"type"` // success, error, warning, info
	Title     string    `gorm:"type:varchar(255);column:title;not null" json:"title"`
	Message   string    `gorm:"type:text;column:message" json:"message"`
	Read      bool      `gorm:"column:read;not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (n *Notification) TableName() string {
	return "notifications"
}

// Document is an uploaded candidate file. StorageRef is the storage key.
type Document struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	CandidateID uint      `gorm:"column:candidate_id;index;not null" json:"candidateId"`
	StorageRef  string    `gorm:"type:varchar(255);column:storage_ref;uniqueIndex;not null" json:"storageRef"`
	FileName    string    `gorm:"type:varchar(255);column:file_name" json:"fileName"`
	FileType    string    `gorm:"type:varchar(100);column:file_type" json:"fileType"`
	FileSize    int64     `gorm:"column:file_size" json:"fileSize"`
	URL         string    `gorm:"type:varchar(512);column:url" json:"url"`
	UploadTime  time.Time `gorm:"column:upload_time;autoCreateTime" json:"uploadTime"`
}

func (d *Document) TableName() string {
	return "documents"
}

// All lists every persisted model for migrations.
func All() []any {
	return []any{&User{}, &Candidate{}, &StepRecord{}, &Activity{}, &Notification{}, &Document{}}
}
