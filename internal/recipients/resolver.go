/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package recipients

import (
	"context"
	"strconv"
	"strings"

	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/rs/zerolog"
)

const RoleProjectManager = "project_manager"

type Store interface {
	ProjectRoleUsers(ctx context.Context, projectID int64, roles []string) ([]domain.User, error)
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByID(ctx context.Context, id int64) (*domain.User, error)
	TenantAdmins(ctx context.Context, tenantID int64) ([]domain.User, error)
}

// Resolver turns a project into its notifiable manager-class users through
// the fallback chain: explicit per-project role records, then the project's
// embedded team-membership entries, then the owner. It tolerates missing
// data at every tier and never returns an error; total absence yields an
// empty set that callers treat as "nothing to notify".
type Resolver struct {
	store Store
	log   zerolog.Logger
}

func New(store Store, log zerolog.Logger) *Resolver { return &Resolver{store: store, log: log} }

// Managers resolves the ordered, deduplicated manager recipients for a
// project, stopping at the first non-empty tier.
func (r *Resolver) Managers(ctx context.Context, project domain.Project) []domain.User {
	// Tier 1: explicit per-project role records; admin records serve as the
	// in-tier fallback when no PM role exists.
	users, err := r.store.ProjectRoleUsers(ctx, project.ID, []string{RoleProjectManager, "admin"})
	if err != nil {
		r.log.Error().Err(err).Int64("project", project.ID).Msg("recipients: project role lookup failed")
	}
	if out := dedupe(users); len(out) > 0 { return out }

	// Tier 2: embedded team-membership entries tagged with the role.
	var members []domain.User
	for _, m := range project.TeamMembers {
		if !strings.EqualFold(m.Role, RoleProjectManager) { continue }
		if u := r.userByRef(ctx, m.Email); u != nil { members = append(members, *u) }
	}
	if out := dedupe(members); len(out) > 0 { return out }

	// Tier 3: the project owner, stored as either an email or a user id.
	if owner := strings.TrimSpace(project.Owner); owner != "" {
		if u := r.userByRef(ctx, owner); u != nil { return []domain.User{*u} }
	}
	return nil
}

// TenantAdmins is the declared last-resort tier; only rules that opt into
// an admin fallback call it.
func (r *Resolver) TenantAdmins(ctx context.Context, tenantID int64) []domain.User {
	admins, err := r.store.TenantAdmins(ctx, tenantID)
	if err != nil {
		r.log.Error().Err(err).Int64("tenant", tenantID).Msg("recipients: tenant admin lookup failed")
		return nil
	}
	return dedupe(admins)
}

// userByRef resolves a reference that may be an email address or a
// stringified user id. An email with no matching user record still yields a
// notifiable placeholder, since email is all dispatch needs.
func (r *Resolver) userByRef(ctx context.Context, ref string) *domain.User {
	ref = strings.TrimSpace(ref)
	if ref == "" { return nil }
	if strings.Contains(ref, "@") {
		u, err := r.store.UserByEmail(ctx, strings.ToLower(ref))
		if err == nil && u != nil { return u }
		return &domain.User{Email: strings.ToLower(ref)}
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil { return nil }
	u, err := r.store.UserByID(ctx, id)
	if err != nil || u == nil { return nil }
	return u
}

func dedupe(users []domain.User) []domain.User {
	seen := map[string]struct{}{}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" { continue }
		if _, ok := seen[email]; ok { continue }
		seen[email] = struct{}{}
		u.Email = email
		out = append(out, u)
	}
	return out
}
