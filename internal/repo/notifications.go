package repo

import (
	"context"
	"strings"
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/jackc/pgx/v5"
)

const notificationCols = `id, tenant_id, recipient_email, COALESCE(subject_type,''), COALESCE(subject_id,0),
	tag, status, COALESCE(title,''), COALESCE(message,''), COALESCE(read,false), created_at, updated_at`

func scanNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	defer rows.Close()
	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var tag string
		if err := rows.Scan(&n.ID, &n.TenantID, &n.Recipient, &n.SubjectType, &n.SubjectID, &tag, &n.Status, &n.Title, &n.Message, &n.Read, &n.CreatedAt, &n.UpdatedAt); err != nil { return nil, err }
		n.Tag = domain.RuleTag(tag)
		out = append(out, n)
	}
	return out, nil
}

// openDedupPredicate mirrors the WHERE clause of the partial unique index
// notifications_open_dedup. Scoping the index (and the conflict target) to
// the persistent-condition tags keeps time-window tags free to accumulate
// one row per window without tripping the index.
var openDedupPredicate = func() string {
	tags := domain.OpenDedupTags()
	quoted := make([]string, 0, len(tags))
	for _, t := range tags { quoted = append(quoted, "'"+string(t)+"'") }
	return "status = 'OPEN' AND tag IN (" + strings.Join(quoted, ", ") + ")"
}()

// UpsertOpenNotification atomically creates or refreshes the single OPEN
// row per (recipient, tag, subject) key. The conflict target is a partial
// unique index over OPEN rows of the persistent-condition tags, so the
// at-most-one-OPEN invariant holds even under overlapping job runs; a
// refresh rewrites created_at so the UI sorts the alert back to the top.
func (r *Repository) UpsertOpenNotification(ctx context.Context, n domain.Notification) (bool, error) {
	q := `INSERT INTO notifications(tenant_id, recipient_email, subject_type, subject_id, tag, status, title, message, read, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,'OPEN',$6,$7,false,$8,$8)
		ON CONFLICT (recipient_email, tag, subject_id) WHERE ` + openDedupPredicate + `
		DO UPDATE SET title=EXCLUDED.title, message=EXCLUDED.message, read=false,
			created_at=EXCLUDED.created_at, updated_at=EXCLUDED.updated_at
		RETURNING id, (xmax = 0)`
	var id int64
	var inserted bool
	err := r.db.Pool.QueryRow(ctx, q, n.TenantID, strings.ToLower(n.Recipient), n.SubjectType, n.SubjectID, string(n.Tag), n.Title, n.Message, n.CreatedAt).Scan(&id, &inserted)
	if err != nil { return false, err }
	return inserted, nil
}

func (r *Repository) InsertNotification(ctx context.Context, n domain.Notification) error {
	const q = `INSERT INTO notifications(tenant_id, recipient_email, subject_type, subject_id, tag, status, title, message, read, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,false,$9,$9)`
	_, err := r.db.Pool.Exec(ctx, q, n.TenantID, strings.ToLower(n.Recipient), n.SubjectType, n.SubjectID, string(n.Tag), n.Status, n.Title, n.Message, n.CreatedAt)
	return err
}

func (r *Repository) CountNotificationsSince(ctx context.Context, recipient string, tags []domain.RuleTag, since time.Time) (int, error) {
	strs := make([]string, 0, len(tags))
	for _, t := range tags { strs = append(strs, string(t)) }
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications
		WHERE recipient_email=$1 AND tag = ANY($2) AND created_at >= $3`, strings.ToLower(recipient), strs, since).Scan(&count)
	return count, err
}

func (r *Repository) OpenNotifications(ctx context.Context, recipient string, tag domain.RuleTag, subjectID int64) ([]domain.Notification, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+notificationCols+` FROM notifications
		WHERE recipient_email=$1 AND tag=$2 AND subject_id=$3 AND status='OPEN'
		ORDER BY created_at DESC`, strings.ToLower(recipient), string(tag), subjectID)
	if err != nil { return nil, err }
	return scanNotifications(rows)
}

// OpenNotificationsByTag feeds the auto-resolve sweeps that visit alerts
// whose subject has left the rule's scope.
func (r *Repository) OpenNotificationsByTag(ctx context.Context, tag domain.RuleTag) ([]domain.Notification, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+notificationCols+` FROM notifications
		WHERE tag=$1 AND status='OPEN' ORDER BY created_at DESC`, string(tag))
	if err != nil { return nil, err }
	return scanNotifications(rows)
}

func (r *Repository) ResolveNotification(ctx context.Context, id int64) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET status='RESOLVED', updated_at=now() WHERE id=$1`, id)
	return err
}

// NotificationCountsSince aggregates per-tenant, per-tag notification
// volume for the ops digest.
func (r *Repository) NotificationCountsSince(ctx context.Context, since time.Time) (map[int64]map[domain.RuleTag]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT tenant_id, tag, COUNT(*) FROM notifications
		WHERE created_at >= $1 GROUP BY tenant_id, tag`, since)
	if err != nil { return nil, err }
	defer rows.Close()
	out := map[int64]map[domain.RuleTag]int{}
	for rows.Next() {
		var tenant int64
		var tag string
		var c int
		if err := rows.Scan(&tenant, &tag, &c); err != nil { return nil, err }
		if out[tenant] == nil { out[tenant] = map[domain.RuleTag]int{} }
		out[tenant][domain.RuleTag(tag)] = c
	}
	return out, nil
}
