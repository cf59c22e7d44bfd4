/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package alerts

import (
	"context"
	"strings"
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/rs/zerolog"
)

type Outcome int

const (
	Suppressed Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "suppressed"
	}
}

type DedupMode int

const (
	// DedupOpen refreshes the single OPEN notification per
	// (recipient, tag, subject) key in place instead of inserting.
	DedupOpen DedupMode = iota
	// DedupWindow suppresses entirely when any notification with the same
	// (recipient, tag) was created since the window start.
	DedupWindow
	// DedupNone always inserts; used by state-transition rules and forced runs.
	DedupNone
)

type Candidate struct {
	TenantID    int64
	Recipient   string
	Tag         domain.RuleTag
	SubjectType string
	SubjectID   int64
	Title       string
	Message     string

	Dedup DedupMode
	Since time.Time // window start, DedupWindow only

	EmailData map[string]any
}

type Store interface {
	UpsertOpenNotification(ctx context.Context, n domain.Notification) (created bool, err error)
	InsertNotification(ctx context.Context, n domain.Notification) error
	CountNotificationsSince(ctx context.Context, recipient string, tags []domain.RuleTag, since time.Time) (int, error)
	OpenNotifications(ctx context.Context, recipient string, tag domain.RuleTag, subjectID int64) ([]domain.Notification, error)
	ResolveNotification(ctx context.Context, id int64) error
}

type Mailer interface {
	SendTemplate(ctx context.Context, to, template string, data map[string]any) error
}

// Dispatcher persists notifications through the dedup strategies and fires
// the email side effect for email-worthy tags. The in-app write is the
// authoritative signal; email failures are logged and swallowed.
type Dispatcher struct {
	store Store
	mail  Mailer
	log   zerolog.Logger
	Now   func() time.Time
}

func NewDispatcher(store Store, mail Mailer, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{store: store, mail: mail, log: log, Now: time.Now}
}

func (d *Dispatcher) Dispatch(ctx context.Context, c Candidate) (Outcome, error) {
	recipient := strings.ToLower(strings.TrimSpace(c.Recipient))
	if recipient == "" || !c.Tag.Valid() { return Suppressed, nil }
	now := d.Now()
	n := domain.Notification{
		TenantID:    c.TenantID,
		Recipient:   recipient,
		SubjectType: c.SubjectType,
		SubjectID:   c.SubjectID,
		Tag:         c.Tag,
		Status:      domain.NotificationOpen,
		Title:       c.Title,
		Message:     c.Message,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var outcome Outcome
	switch c.Dedup {
	case DedupWindow:
		count, err := d.store.CountNotificationsSince(ctx, recipient, []domain.RuleTag{c.Tag}, c.Since)
		if err != nil { return Suppressed, err }
		if count > 0 {
			d.log.Debug().Str("recipient", recipient).Str("tag", string(c.Tag)).Time("since", c.Since).Msg("dispatch: suppressed by window")
			return Suppressed, nil
		}
		if err := d.store.InsertNotification(ctx, n); err != nil { return Suppressed, err }
		outcome = Created
	case DedupNone:
		if err := d.store.InsertNotification(ctx, n); err != nil { return Suppressed, err }
		outcome = Created
	default:
		created, err := d.store.UpsertOpenNotification(ctx, n)
		if err != nil { return Suppressed, err }
		if created { outcome = Created } else { outcome = Updated }
	}

	// Email only on the first write for a key; an in-place refresh of an
	// unchanged condition would otherwise re-mail on every scheduled run.
	if outcome == Created { d.sendEmail(ctx, c, recipient) }
	return outcome, nil
}

// ResolveCleared transitions the OPEN notification for a key to RESOLVED
// once the underlying condition no longer holds. Finding more than one OPEN
// row for a key is a data-integrity breach: it is logged, the most recent
// row is resolved, and the rest are left for manual cleanup.
func (d *Dispatcher) ResolveCleared(ctx context.Context, recipient string, tag domain.RuleTag, subjectID int64) error {
	recipient = strings.ToLower(strings.TrimSpace(recipient))
	open, err := d.store.OpenNotifications(ctx, recipient, tag, subjectID)
	if err != nil { return err }
	if len(open) == 0 { return nil }
	if len(open) > 1 {
		d.log.Warn().Str("recipient", recipient).Str("tag", string(tag)).Int64("subject", subjectID).
			Int("open_rows", len(open)).Msg("dispatch: multiple OPEN notifications for one key")
	}
	// rows arrive newest first
	return d.store.ResolveNotification(ctx, open[0].ID)
}

func (d *Dispatcher) sendEmail(ctx context.Context, c Candidate, recipient string) {
	tpl := c.Tag.Meta().EmailTemplate
	if tpl == "" || d.mail == nil { return }
	data := map[string]any{"title": c.Title, "message": c.Message}
	for k, v := range c.EmailData { data[k] = v }
	if err := d.mail.SendTemplate(ctx, recipient, tpl, data); err != nil {
		d.log.Error().Err(err).Str("recipient", recipient).Str("template", tpl).Msg("dispatch: email send failed")
	}
}
