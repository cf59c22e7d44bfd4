package domain

import "time"

type Tenant struct {
	ID                 int64
	Name               string
	Status             string // active | trial | suspended
	SubscriptionStatus string // active | trialing | past_due
	TrialEndsAt        *time.Time
}

type User struct {
	ID                  int64
	TenantID            int64
	Email               string
	Role                string // admin | member
	CustomRole          string // owner | project_manager | viewer | client
	Status              string // active | inactive
	WorkingHoursPerDay  float64
	WeekOff             string // weekday name, empty means Sunday
}

type TeamMember struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Project struct {
	ID       int64
	TenantID int64
	Name     string
	// Owner is either an email address or a stringified user id,
	// depending on which UI path created the project.
	Owner       string
	TeamMembers []TeamMember
}

type ProjectRole struct {
	ProjectID int64
	UserID    int64
	Role      string
}

type Sprint struct {
	ID                int64
	ProjectID         int64
	TenantID          int64
	Name              string
	Status            string // draft | active | completed
	StartAt           *time.Time
	EndAt             *time.Time
	CommittedOverride *float64
	LockedAt          *time.Time
	Impediments       []string
}

type Story struct {
	ID        int64
	SprintID  *int64
	ProjectID int64
	TenantID  int64
	Status    string
	Points    *float64
	Assignees []string
}

type Task struct {
	ID             int64
	ProjectID      int64
	TenantID       int64
	SprintID       *int64
	StoryID        *int64
	Title          string
	Assignees      []string
	Status         string
	DueAt          *time.Time
	EstimatedHours float64
}

// Timesheet is the per-user per-date rollup of logged minutes.
type Timesheet struct {
	ID            int64
	TenantID      int64
	UserEmail     string
	ProjectID     int64
	WorkDate      time.Time
	Minutes       int
	ReworkMinutes int
	Status        string // pending | pending_pm | approved
	CreatedAt     time.Time
}

const (
	NotificationOpen     = "OPEN"
	NotificationResolved = "RESOLVED"
)

// Notification is the dedup unit and the wire format the UI renders;
// field names here must stay stable.
type Notification struct {
	ID          int64
	TenantID    int64
	Recipient   string // email, lowercased
	SubjectType string // task | sprint | user | tenant
	SubjectID   int64
	Tag         RuleTag
	Status      string // OPEN | RESOLVED
	Title       string
	Message     string
	Read        bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SubscriptionSummary struct {
	TenantID  int64
	Status    string
	UpdatedAt time.Time
}

type RuleRun struct {
	ID         int64
	Rule       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Scanned    int
	Created    int
	Updated    int
	Suppressed int
	Success    bool
	Error      string
}
