package domain

import "sort"

// RuleTag identifies the rule that produced a notification. It doubles as
// the dedup key component and the UI categorization, so the persisted string
// values are part of the wire format and must not change.
type RuleTag string

const (
	TagTaskOverdue      RuleTag = "task_overdue_alert"
	TagTaskEscalation   RuleTag = "task_escalation_alert"
	TagSprintOverdue    RuleTag = "sprint_overdue_alert"
	TagLowWorkload      RuleTag = "low_workload_alert"
	TagOverallocation   RuleTag = "overallocation_alert"
	TagPendingTimesheet RuleTag = "pending_timesheet_alert"
	TagApprovalBacklog  RuleTag = "pm_approval_backlog_alert"
	TagContextSwitch    RuleTag = "context_switch_alert"
	TagComplianceGap    RuleTag = "timesheet_compliance_alert"
	TagTrialExpiry      RuleTag = "trial_expiry_alert"
	TagComplianceReward RuleTag = "consistent_compliance_reward"
	TagOpsDigest        RuleTag = "ops_digest"
)

type TagMeta struct {
	Title         string
	EmailTemplate string // empty means in-app only
	Violation     bool   // counts against the consistent-compliance reward
	OpenDedup     bool   // persistent-condition tag, one OPEN row per key
}

var tagMeta = map[RuleTag]TagMeta{
	TagTaskOverdue:      {Title: "Task overdue", Violation: true, OpenDedup: true},
	TagTaskEscalation:   {Title: "Overdue task escalated", EmailTemplate: "task_escalation", OpenDedup: true},
	TagSprintOverdue:    {Title: "Sprint at risk"},
	TagLowWorkload:      {Title: "Low workload", OpenDedup: true},
	TagOverallocation:   {Title: "Overallocated"},
	TagPendingTimesheet: {Title: "Timesheets pending", EmailTemplate: "pending_timesheet", Violation: true},
	TagApprovalBacklog:  {Title: "Approvals waiting", EmailTemplate: "approval_backlog"},
	TagContextSwitch:    {Title: "Frequent context switching"},
	TagComplianceGap:    {Title: "Timesheet gap", Violation: true, OpenDedup: true},
	TagTrialExpiry:      {Title: "Trial expired", EmailTemplate: "trial_expired", OpenDedup: true},
	TagComplianceReward: {Title: "Consistency streak", EmailTemplate: "compliance_reward"},
	TagOpsDigest:        {Title: "Weekly alert digest", EmailTemplate: "ops_digest"},
}

func (t RuleTag) Meta() TagMeta { return tagMeta[t] }

func (t RuleTag) Valid() bool { _, ok := tagMeta[t]; return ok }

// ViolationTags is the fixed allow-list the reward rule checks against.
func ViolationTags() []RuleTag {
	out := make([]RuleTag, 0, 4)
	for tag, m := range tagMeta {
		if m.Violation { out = append(out, tag) }
	}
	return out
}

// OpenDedupTags lists the persistent-condition tags, sorted. The partial
// unique index notifications_open_dedup is scoped to exactly this set; the
// time-window tags stay outside it so a fresh row after a cooldown never
// collides with an earlier, still-OPEN one. Keep db/schema.sql in sync.
func OpenDedupTags() []RuleTag {
	out := make([]RuleTag, 0, len(tagMeta))
	for tag, m := range tagMeta {
		if m.OpenDedup { out = append(out, tag) }
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
