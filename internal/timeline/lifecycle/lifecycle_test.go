package lifecycle_test

import (
	"fmt"
	"slices"
	"testing"

	identity "chronicle/internal/identity/models"
	"chronicle/internal/timeline/lifecycle"
	"chronicle/internal/timeline/models"
	dErrors "chronicle/pkg/domain-errors"
	"chronicle/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type caller string

const (
	callerAdmin          caller = "admin"
	callerOwner          caller = "owner"
	callerOther          caller = "other_contributor"
	callerSuspendedOwner caller = "suspended_owner"
	callerSuspendedAdmin caller = "suspended_admin"
	callerAnonymous      caller = "anonymous"
)

var allCallers = []caller{
	callerAdmin, callerOwner, callerOther,
	callerSuspendedOwner, callerSuspendedAdmin, callerAnonymous,
}

func principalFor(c caller) identity.Principal {
	switch c {
	case callerAdmin:
		return testutil.AdminPrincipal()
	case callerOwner:
		return testutil.ContributorPrincipal()
	case callerOther:
		return testutil.OtherContributorPrincipal()
	case callerSuspendedOwner:
		return testutil.SuspendedContributorPrincipal()
	case callerSuspendedAdmin:
		p := testutil.AdminPrincipal()
		p.Active = false
		return p
	default:
		return identity.Anonymous()
	}
}

// allowedGrid re-states the full transition policy independently of the
// implementation table: for each (status, op), the callers permitted to run
// it. Every pair absent here must be denied for every caller.
var allowedGrid = map[models.Status]map[lifecycle.Op][]caller{
	models.StatusPending: {
		lifecycle.OpUpdateContent: {callerAdmin, callerOwner},
		lifecycle.OpApprove:       {callerAdmin},
		lifecycle.OpReject:        {callerAdmin},
		lifecycle.OpAdminDelete:   {callerAdmin},
	},
	models.StatusApproved: {
		lifecycle.OpUpdateContent:   {callerAdmin},
		lifecycle.OpRequestDeletion: {callerOwner},
		lifecycle.OpAdminDelete:     {callerAdmin},
	},
	models.StatusRejected: {
		lifecycle.OpAdminDelete: {callerAdmin},
	},
	models.StatusDeletionRequested: {
		lifecycle.OpConfirmDeletion: {callerAdmin},
		lifecycle.OpDenyDeletion:    {callerAdmin},
		lifecycle.OpAdminDelete:     {callerAdmin},
	},
	models.StatusDeleted: {},
}

func Test_Evaluate_ExhaustiveGrid(t *testing.T) {
	owner := testutil.TestIDs.ContributorID

	for _, status := range lifecycle.Statuses {
		for _, op := range lifecycle.Ops {
			for _, c := range allCallers {
				name := fmt.Sprintf("%s/%s/%s", status, op, c)
				t.Run(name, func(t *testing.T) {
					wantAllowed := slices.Contains(allowedGrid[status][op], c)

					_, err := lifecycle.Evaluate(principalFor(c), op, status, owner)
					if wantAllowed {
						assert.NoError(t, err)
						return
					}
					require.Error(t, err)
					assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden),
						"denial must carry the forbidden code, got %v", err)
				})
			}
		}
	}
}

func Test_Evaluate_DeletedIsTerminal(t *testing.T) {
	for _, op := range lifecycle.Ops {
		_, err := lifecycle.Evaluate(testutil.AdminPrincipal(), op, models.StatusDeleted, testutil.TestIDs.ContributorID)
		require.Error(t, err, "op %s must be denied on a deleted event", op)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	}
}

func Test_Evaluate_Effects(t *testing.T) {
	owner := testutil.TestIDs.ContributorID

	tests := []struct {
		name          string
		p             identity.Principal
		op            lifecycle.Op
		from          models.Status
		next          models.Status
		logAction     models.Action
		statusChanges bool
		setApprovedAt bool
	}{
		{
			name: "approve publishes and stamps approval",
			p:    testutil.AdminPrincipal(), op: lifecycle.OpApprove, from: models.StatusPending,
			next: models.StatusApproved, logAction: models.ActionApproved, statusChanges: true, setApprovedAt: true,
		},
		{
			name: "reject declines",
			p:    testutil.AdminPrincipal(), op: lifecycle.OpReject, from: models.StatusPending,
			next: models.StatusRejected, logAction: models.ActionRejected, statusChanges: true,
		},
		{
			name: "update keeps status",
			p:    testutil.ContributorPrincipal(), op: lifecycle.OpUpdateContent, from: models.StatusPending,
			next: models.StatusPending, logAction: models.ActionUpdated,
		},
		{
			name: "request deletion flags removal",
			p:    testutil.ContributorPrincipal(), op: lifecycle.OpRequestDeletion, from: models.StatusApproved,
			next: models.StatusDeletionRequested, logAction: models.ActionDeletionRequested, statusChanges: true,
		},
		{
			name: "confirm deletion soft-deletes",
			p:    testutil.AdminPrincipal(), op: lifecycle.OpConfirmDeletion, from: models.StatusDeletionRequested,
			next: models.StatusDeleted, logAction: models.ActionDeleted, statusChanges: true,
		},
		{
			name: "deny deletion restores without restamping approval",
			p:    testutil.AdminPrincipal(), op: lifecycle.OpDenyDeletion, from: models.StatusDeletionRequested,
			next: models.StatusApproved, logAction: models.ActionDeletionDenied, statusChanges: true,
		},
		{
			name: "admin delete from pending",
			p:    testutil.AdminPrincipal(), op: lifecycle.OpAdminDelete, from: models.StatusPending,
			next: models.StatusDeleted, logAction: models.ActionDeleted, statusChanges: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := lifecycle.Evaluate(tt.p, tt.op, tt.from, owner)
			require.NoError(t, err)
			assert.Equal(t, tt.next, decision.Next)
			assert.Equal(t, tt.logAction, decision.LogAction)
			assert.Equal(t, tt.statusChanges, decision.StatusChanges)
			assert.Equal(t, tt.setApprovedAt, decision.SetApprovedAt)
		})
	}
}

func Test_EvaluateCreate(t *testing.T) {
	assert.NoError(t, lifecycle.EvaluateCreate(testutil.ContributorPrincipal()))

	for _, c := range []caller{callerAdmin, callerSuspendedOwner, callerAnonymous} {
		err := lifecycle.EvaluateCreate(principalFor(c))
		require.Error(t, err, "caller %s must not create events", c)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	}
}

func Test_VisibilityFor(t *testing.T) {
	assert.True(t, lifecycle.VisibilityFor(testutil.AdminPrincipal()).All)

	vis := lifecycle.VisibilityFor(testutil.ContributorPrincipal())
	assert.False(t, vis.All)
	assert.Equal(t, testutil.TestIDs.ContributorID, vis.OwnerID)

	anon := lifecycle.VisibilityFor(identity.Anonymous())
	assert.False(t, anon.All)
	assert.True(t, anon.OwnerID.IsNil())

	// A suspended admin loses the unrestricted scope but keeps owner reads.
	suspended := testutil.AdminPrincipal()
	suspended.Active = false
	vis = lifecycle.VisibilityFor(suspended)
	assert.False(t, vis.All)
	assert.Equal(t, suspended.ID, vis.OwnerID)
}

func Test_Visibility_Allows(t *testing.T) {
	ownEvent := func(status models.Status) *models.Event {
		return testutil.NewEventBuilder().WithStatus(status).Build()
	}
	foreignEvent := func(status models.Status) *models.Event {
		return testutil.NewEventBuilder().WithStatus(status).WithCreatedBy(testutil.TestIDs.OtherID).Build()
	}

	adminVis := lifecycle.VisibilityFor(testutil.AdminPrincipal())
	ownerVis := lifecycle.VisibilityFor(testutil.ContributorPrincipal())
	anonVis := lifecycle.VisibilityFor(identity.Anonymous())

	for _, status := range lifecycle.Statuses {
		approved := status == models.StatusApproved

		assert.True(t, adminVis.Allows(ownEvent(status)), "admin sees %s", status)
		assert.True(t, ownerVis.Allows(ownEvent(status)), "owner sees own %s", status)
		assert.Equal(t, approved, ownerVis.Allows(foreignEvent(status)), "owner visibility of foreign %s", status)
		assert.Equal(t, approved, anonVis.Allows(ownEvent(status)), "anonymous visibility of %s", status)
	}
}
