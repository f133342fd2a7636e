package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCaseManager Role = "case_manager"
	RolePhysician   Role = "physician"
	RoleAuditor     Role = "auditor"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleCaseManager, RolePhysician, RoleAuditor:
		return true
	}
	return false
}

// CanMutate reports whether the role may perform write operations at all.
// Auditors have read-only access to every case and the audit log.
func (r Role) CanMutate() bool {
	return r != RoleAuditor
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	FirstName    string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName     string `gorm:"column:last_name;type:varchar(100);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	// NPI for physicians, empty for other roles
	NPI string `gorm:"column:npi;type:varchar(20)"`

	IsActive          bool       `gorm:"column:is_active;default:true;index"`
	FailedLoginCount  int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil       *time.Time `gorm:"column:locked_until"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	PasswordChangedAt time.Time  `gorm:"column:password_changed_at"`
}

func (User) TableName() string {
	return "auth.users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

type AuditAction string

const (
	ActionCreate     AuditAction = "create"
	ActionRead       AuditAction = "read"
	ActionUpdate     AuditAction = "update"
	ActionClaim      AuditAction = "claim"
	ActionTransition AuditAction = "transition"
	ActionDecision   AuditAction = "decision"
	ActionSubmit     AuditAction = "submit"
	ActionAppeal     AuditAction = "appeal"
	ActionLogin      AuditAction = "login"
)

// AuditLog rows are written once and never updated or deleted.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	// Set for every case-scoped action so the per-case trail is a single
	// indexed lookup rather than a resource_type/resource_id scan.
	CaseID *uuid.UUID `gorm:"column:case_id;type:uuid;index"`

	RequestID  string `gorm:"column:request_id;type:varchar(50);index"`
	UserAgent  string `gorm:"column:user_agent;type:text"`
	StatusCode int    `gorm:"column:status_code"`

	Changes string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   Role      `json:"role"`
}
