package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"hotelhub-linencount/internal/domain"
)

func TestRoleAuthorizer_DefaultGrants(t *testing.T) {
	auth := NewRoleAuthorizer()
	ctx := context.Background()

	cases := []struct {
		role       string
		capability domain.Capability
		want       bool
	}{
		{"housekeeping", domain.CapAccessModule, true},
		{"housekeeping", domain.CapEditSubmitted, false},
		{"housekeeping", domain.CapViewReports, false},
		{"housekeeping_supervisor", domain.CapAccessModule, true},
		{"housekeeping_supervisor", domain.CapEditSubmitted, true},
		{"housekeeping_supervisor", domain.CapViewReports, true},
		{"manager", domain.CapAccessModule, false},
		{"manager", domain.CapViewReports, true},
		{"administrator", domain.CapEditSubmitted, true},
		{"receptionist", domain.CapAccessModule, false},
	}

	for _, tc := range cases {
		actor := domain.Actor{UserID: "u1", Role: tc.role}
		assert.Equal(t, tc.want, auth.Can(ctx, actor, tc.capability),
			"role=%s capability=%s", tc.role, tc.capability)
	}
}

func TestRoleAuthorizer_GenericEditorHoldsEverything(t *testing.T) {
	auth := NewRoleAuthorizer()
	actor := domain.Actor{UserID: "u1", Role: "editor"}
	ctx := context.Background()

	assert.True(t, auth.Can(ctx, actor, domain.CapAccessModule))
	assert.True(t, auth.Can(ctx, actor, domain.CapEditSubmitted))
	assert.True(t, auth.Can(ctx, actor, domain.CapViewReports))
}

func TestRoleAuthorizer_EmptyRoleDenied(t *testing.T) {
	auth := NewRoleAuthorizer()
	actor := domain.Actor{UserID: "u1"}

	assert.False(t, auth.Can(context.Background(), actor, domain.CapAccessModule))
}
