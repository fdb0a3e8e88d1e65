// Package lifecycle is the moderation state machine and authorization gate.
//
// Every legality rule lives in one transition table keyed by (status, op) so
// the mapping (role x ownership x state) -> permitted action stays auditable
// and exhaustively testable. Evaluation is pure: same inputs, same answer,
// no side effects. Callers re-run Evaluate against the freshly-read status
// inside the store's unit of work before mutating anything.
package lifecycle

import (
	"fmt"

	identity "chronicle/internal/identity/models"
	"chronicle/internal/timeline/models"
	id "chronicle/pkg/domain"
	dErrors "chronicle/pkg/domain-errors"
)

// Op identifies a requested lifecycle action.
type Op string

const (
	OpUpdateContent   Op = "update_content"
	OpApprove         Op = "approve"
	OpReject          Op = "reject"
	OpRequestDeletion Op = "request_deletion"
	OpConfirmDeletion Op = "confirm_deletion"
	OpDenyDeletion    Op = "deny_deletion"
	OpAdminDelete     Op = "admin_delete"
)

// Ops lists every transition op, for exhaustive table tests.
var Ops = []Op{
	OpUpdateContent,
	OpApprove,
	OpReject,
	OpRequestDeletion,
	OpConfirmDeletion,
	OpDenyDeletion,
	OpAdminDelete,
}

// Statuses lists every lifecycle state, for exhaustive table tests.
var Statuses = []models.Status{
	models.StatusPending,
	models.StatusApproved,
	models.StatusRejected,
	models.StatusDeletionRequested,
	models.StatusDeleted,
}

// Decision describes the effect of an accepted transition.
type Decision struct {
	// Next is the target status. Equal to the current status when
	// StatusChanges is false (update_content never moves the status).
	Next          models.Status
	LogAction     models.Action
	StatusChanges bool

	// SetApprovedAt marks the first entry into APPROVED. Restores via
	// deny_deletion leave the original approval time intact.
	SetApprovedAt bool
}

// guardFunc checks the caller against the precondition of one transition.
// It returns the denial reason when the guard fails.
type guardFunc func(p identity.Principal, createdBy id.UserID) (bool, string)

type transition struct {
	guard         guardFunc
	next          models.Status
	logAction     models.Action
	statusChanges bool
	setApprovedAt bool
}

func isAdmin(p identity.Principal, _ id.UserID) (bool, string) {
	if !p.IsAdmin() {
		return false, "admin role required"
	}
	return true, ""
}

func isOwningActiveContributor(p identity.Principal, createdBy id.UserID) (bool, string) {
	if !p.IsActiveContributor() {
		return false, "active contributor role required"
	}
	if !p.Owns(createdBy) {
		return false, "only the event owner may perform this action"
	}
	return true, ""
}

// adminOrOwningContributor guards update_content on PENDING records: an admin
// always may, a contributor only while the record is still theirs to fix.
func adminOrOwningContributor(p identity.Principal, createdBy id.UserID) (bool, string) {
	if p.IsAdmin() {
		return true, ""
	}
	return isOwningActiveContributor(p, createdBy)
}

// table holds the full transition map: (from-status, op) -> effect.
// An absent pair is an illegal transition; it is rejected, never coerced to a
// neighboring legal one. DELETED has no entries beyond the table-wide absence:
// it is terminal for all write actions.
var table = map[models.Status]map[Op]transition{
	models.StatusPending: {
		OpUpdateContent: {guard: adminOrOwningContributor, next: models.StatusPending, logAction: models.ActionUpdated},
		OpApprove:       {guard: isAdmin, next: models.StatusApproved, logAction: models.ActionApproved, statusChanges: true, setApprovedAt: true},
		OpReject:        {guard: isAdmin, next: models.StatusRejected, logAction: models.ActionRejected, statusChanges: true},
		OpAdminDelete:   {guard: isAdmin, next: models.StatusDeleted, logAction: models.ActionDeleted, statusChanges: true},
	},
	models.StatusApproved: {
		OpUpdateContent:   {guard: isAdmin, next: models.StatusApproved, logAction: models.ActionUpdated},
		OpRequestDeletion: {guard: isOwningActiveContributor, next: models.StatusDeletionRequested, logAction: models.ActionDeletionRequested, statusChanges: true},
		OpAdminDelete:     {guard: isAdmin, next: models.StatusDeleted, logAction: models.ActionDeleted, statusChanges: true},
	},
	models.StatusRejected: {
		OpAdminDelete: {guard: isAdmin, next: models.StatusDeleted, logAction: models.ActionDeleted, statusChanges: true},
	},
	models.StatusDeletionRequested: {
		OpConfirmDeletion: {guard: isAdmin, next: models.StatusDeleted, logAction: models.ActionDeleted, statusChanges: true},
		OpDenyDeletion:    {guard: isAdmin, next: models.StatusApproved, logAction: models.ActionDeletionDenied, statusChanges: true},
		OpAdminDelete:     {guard: isAdmin, next: models.StatusDeleted, logAction: models.ActionDeleted, statusChanges: true},
	},
}

// Evaluate authorizes one transition attempt. It returns the decision when the
// (status, op) pair is legal and the guard holds, or a forbidden domain error
// otherwise. State and log must remain untouched on denial; Evaluate itself
// never mutates anything.
func Evaluate(p identity.Principal, op Op, status models.Status, createdBy id.UserID) (Decision, error) {
	ops, ok := table[status]
	if !ok {
		return Decision{}, dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("no actions allowed from status %s", status))
	}
	tr, ok := ops[op]
	if !ok {
		return Decision{}, dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("action %s not allowed from status %s", op, status))
	}
	if allowed, reason := tr.guard(p, createdBy); !allowed {
		return Decision{}, dErrors.New(dErrors.CodeForbidden, reason)
	}
	return Decision{
		Next:          tr.next,
		LogAction:     tr.logAction,
		StatusChanges: tr.statusChanges,
		SetApprovedAt: tr.setApprovedAt,
	}, nil
}

// EvaluateCreate authorizes event creation, which has no from-state. New
// events always enter PENDING with a CREATED log entry.
func EvaluateCreate(p identity.Principal) error {
	if !p.IsActiveContributor() {
		return dErrors.New(dErrors.CodeForbidden, "active contributor role required")
	}
	return nil
}
