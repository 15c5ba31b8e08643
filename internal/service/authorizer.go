package service

import (
	"context"

	"hotelhub-linencount/internal/domain"
	"hotelhub-linencount/internal/hub"

	"go.uber.org/zap"
)

// Authorizer 权限检查接口
// Injected into every service; there is no ambient permission lookup.
type Authorizer interface {
	Can(ctx context.Context, actor domain.Actor, capability domain.Capability) bool
}

// RoleAuthorizer 基于角色的默认权限实现
// Used when the host permission system is absent or unreachable. Grants
// mirror the module manifest's default role assignments; any role listed in
// GenericEditorRoles holds every module capability, which reproduces the
// host's generic "can edit" fallback as an explicit, testable rule.
type RoleAuthorizer struct {
	Grants             map[domain.Capability][]string
	GenericEditorRoles []string
}

// NewRoleAuthorizer 创建默认授权器（模块清单中的缺省角色授权）
func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{
		Grants: map[domain.Capability][]string{
			domain.CapAccessModule:  {"housekeeping", "housekeeping_supervisor", "administrator"},
			domain.CapEditSubmitted: {"housekeeping_supervisor", "administrator"},
			domain.CapViewReports:   {"housekeeping_supervisor", "manager", "administrator"},
		},
		GenericEditorRoles: []string{"editor"},
	}
}

var _ Authorizer = (*RoleAuthorizer)(nil)

func (a *RoleAuthorizer) Can(_ context.Context, actor domain.Actor, capability domain.Capability) bool {
	if actor.Role == "" {
		return false
	}
	for _, role := range a.GenericEditorRoles {
		if actor.Role == role {
			return true
		}
	}
	for _, role := range a.Grants[capability] {
		if actor.Role == role {
			return true
		}
	}
	return false
}

// HubAuthorizer 委托宿主权限系统，出错时回退到默认授权器
type HubAuthorizer struct {
	client   *hub.Client
	fallback Authorizer
	logger   *zap.Logger
}

// NewHubAuthorizer 创建宿主委托授权器
func NewHubAuthorizer(client *hub.Client, fallback Authorizer, logger *zap.Logger) *HubAuthorizer {
	return &HubAuthorizer{client: client, fallback: fallback, logger: logger}
}

var _ Authorizer = (*HubAuthorizer)(nil)

func (a *HubAuthorizer) Can(ctx context.Context, actor domain.Actor, capability domain.Capability) bool {
	allowed, err := a.client.Can(actor.UserID, capability)
	if err != nil {
		a.logger.Warn("Hub permission check failed, using role fallback",
			zap.String("user_id", actor.UserID),
			zap.String("capability", string(capability)),
			zap.Error(err))
		return a.fallback.Can(ctx, actor, capability)
	}
	return allowed
}
