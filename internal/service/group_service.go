package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// GroupService implements the Connect GroupService
type GroupService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, logger: logger}
}

// CreateGroup creates a new group. The caller is always a member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:    req.Msg.Name,
		Members: append([]string{userID}, findNewMembers(req.Msg.Members, []string{userID})...),
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}

	s.logger.Info("Group created", "group_id", group.ID)
	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

func (s *GroupService) loadGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return memberGroup(ctx, s.store, s.logger, groupID)
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	s.logger.Info("GetGroup request received", "group_id", req.Msg.GroupID)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("GetGroup successful", "group_id", group.ID, "name", group.Name)
	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

// ListGroups returns the groups the caller belongs to.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroups(ctx, userID)
	if err != nil {
		s.logger.Error("ListGroups failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}

	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = toGroup(g)
	}
	s.logger.Info("ListGroups successful", "count", len(out))
	return connect.NewResponse(&ListGroupsResponse{Groups: out}), nil
}

// AddMembers adds users to a group the caller belongs to.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[GroupResponse], error) {
	s.logger.Info("AddMembers request received", "group_id", req.Msg.GroupID, "members", req.Msg.Members)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	newMembers := findNewMembers(req.Msg.Members, group.Members)
	if len(newMembers) > 0 {
		if err := s.store.AddGroupMembers(ctx, group.ID, newMembers); err != nil {
			s.logger.Error("AddMembers failed", "group_id", group.ID, "error", err)
			return nil, toConnectError(ctx, s.logger, err)
		}
		group.Members = append(group.Members, newMembers...)
	}

	s.logger.Info("Members added", "group_id", group.ID, "new_members", newMembers)
	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

// GetGroupBalances computes the group's pairwise balances from its open
// obligations, each member's totals, and the simplified payments that settle
// the group.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	groupID := req.Msg.GroupID
	s.logger.Info("GetGroupBalances request received", "group_id", groupID)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	open := false
	obligations, err := s.store.ListObligations(ctx, storage.ObligationFilter{GroupID: group.ID, Settled: &open})
	if err != nil {
		s.logger.Error("GetGroupBalances failed - could not list obligations", "group_id", groupID, "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}

	balances := calculator.Aggregate(obligations)
	totals := calculator.PerUserTotals(balances, group.Members...)
	payments, err := calculator.SimplifyDebts(balances)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, err)
	}

	s.logger.Info("GetGroupBalances successful",
		"group_id", groupID,
		"obligations_count", len(obligations),
		"pairs_count", len(balances),
		"payments_count", len(payments),
	)
	return connect.NewResponse(&BalancesResponse{
		Balances:    toPairBalances(balances),
		Totals:      toUserBalances(totals),
		Suggestions: toPayments(payments),
	}), nil
}
