package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// memberGroup fetches a group the caller may act in: members and admins only.
func memberGroup(ctx context.Context, groups storage.GroupStore, logger *slog.Logger, groupID string) (*models.Group, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	group, err := groups.GetGroup(ctx, groupID)
	if err != nil {
		logger.Error("GetGroup failed", "group_id", groupID, "error", err)
		return nil, toConnectError(ctx, logger, err)
	}
	if !group.HasMember(userID) && !middleware.IsAdmin(ctx) {
		return nil, toConnectError(ctx, logger, notMember(groupID))
	}
	return group, nil
}

// autoAddMembers adds expense participants that are not yet group members.
// Failures are logged; the expense itself is already valid.
func autoAddMembers(ctx context.Context, groups storage.GroupStore, logger *slog.Logger, group *models.Group, userIDs []string) {
	newMembers := findNewMembers(userIDs, group.Members)
	if len(newMembers) == 0 {
		return
	}
	if err := groups.AddGroupMembers(ctx, group.ID, newMembers); err != nil {
		logger.Error("Failed to auto-add members", "group_id", group.ID, "error", err)
		return
	}
	group.Members = append(group.Members, newMembers...)
	logger.Info("Auto-added participants to group", "group_id", group.ID, "new_members", newMembers)
}
