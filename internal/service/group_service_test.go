package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/models"
)

func TestCreateGroup_And_GetGroup(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	createResp, err := srv.groups.CreateGroup(ctx, as("alice", &CreateGroupRequest{
		Name:    "Roommates",
		Members: []string{"bob", "carol", "bob"},
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	group := createResp.Msg.Group
	if group.ID == "" {
		t.Fatal("expected non-empty group ID")
	}
	if len(group.Members) != 3 || group.Members[0] != "alice" {
		t.Errorf("expected alice plus two members, got %v", group.Members)
	}

	getResp, err := srv.groups.GetGroup(ctx, as("bob", &GetGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if getResp.Msg.Group.Name != "Roommates" {
		t.Errorf("name: expected 'Roommates', got '%s'", getResp.Msg.Group.Name)
	}
	if !getResp.Msg.Group.TotalExpense.IsZero() {
		t.Errorf("expected zero total, got %s", getResp.Msg.Group.TotalExpense)
	}
}

func TestGetGroup_Errors(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	_, err := srv.groups.GetGroup(ctx, as("alice", &GetGroupRequest{GroupID: "nonexistent-id"}))
	wantCode(t, err, connect.CodeNotFound)

	_, err = srv.groups.GetGroup(ctx, as("alice", &GetGroupRequest{}))
	wantCode(t, err, connect.CodeInvalidArgument)

	createResp, err := srv.groups.CreateGroup(ctx, as("alice", &CreateGroupRequest{Name: "Private"}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	_, err = srv.groups.GetGroup(ctx, as("mallory", &GetGroupRequest{GroupID: createResp.Msg.Group.ID}))
	wantCode(t, err, connect.CodePermissionDenied)

	// admins see every group
	if _, err := srv.groups.GetGroup(ctx, asAdmin("root", &GetGroupRequest{GroupID: createResp.Msg.Group.ID})); err != nil {
		t.Errorf("admin GetGroup failed: %v", err)
	}
}

func TestListGroups(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	for _, name := range []string{"Trip", "Office"} {
		if _, err := srv.groups.CreateGroup(ctx, as("alice", &CreateGroupRequest{Name: name, Members: []string{"bob"}})); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
	}
	if _, err := srv.groups.CreateGroup(ctx, as("carol", &CreateGroupRequest{Name: "Book club"})); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	resp, err := srv.groups.ListGroups(ctx, as("bob", &ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(resp.Msg.Groups) != 2 {
		t.Errorf("expected 2 groups for bob, got %d", len(resp.Msg.Groups))
	}

	resp, err = srv.groups.ListGroups(ctx, as("carol", &ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(resp.Msg.Groups) != 1 || resp.Msg.Groups[0].Name != "Book club" {
		t.Errorf("expected only 'Book club' for carol, got %+v", resp.Msg.Groups)
	}
}

func TestAddMembers(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	createResp, err := srv.groups.CreateGroup(ctx, as("alice", &CreateGroupRequest{Name: "Trip"}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	groupID := createResp.Msg.Group.ID

	resp, err := srv.groups.AddMembers(ctx, as("alice", &AddMembersRequest{
		GroupID: groupID,
		Members: []string{"bob", "alice", "carol"},
	}))
	if err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	if len(resp.Msg.Group.Members) != 3 {
		t.Errorf("expected 3 members, got %v", resp.Msg.Group.Members)
	}

	_, err = srv.groups.AddMembers(ctx, as("mallory", &AddMembersRequest{GroupID: groupID, Members: []string{"mallory"}}))
	wantCode(t, err, connect.CodePermissionDenied)
}

func TestGetGroupBalances(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	createResp, err := srv.groups.CreateGroup(ctx, as("alice", &CreateGroupRequest{
		Name:    "Trip",
		Members: []string{"bob", "carol", "dave"},
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	groupID := createResp.Msg.Group.ID

	// alice pays 90 for alice, bob and carol; bob pays 30 for carol
	expenses := []struct {
		payer  string
		amount string
		shares map[string]string
	}{
		{"alice", "90", map[string]string{"alice": "30", "bob": "30", "carol": "30"}},
		{"bob", "30", map[string]string{"carol": "30"}},
	}
	for _, e := range expenses {
		var participants []models.ParticipantRecord
		for id, share := range e.shares {
			participants = append(participants, models.ParticipantRecord{UserID: models.UserRef(id), Share: dec(share)})
		}
		if _, err := srv.ledger.CreateExpense(ctx, as(e.payer, &CreateExpenseRequest{
			PayerID:      models.UserRef(e.payer),
			Amount:       dec(e.amount),
			GroupID:      groupID,
			Participants: participants,
		})); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
	}

	resp, err := srv.groups.GetGroupBalances(ctx, as("dave", &GetGroupBalancesRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	// bob owes alice 30, carol owes alice 30, carol owes bob 30
	if len(resp.Msg.Balances) != 3 {
		t.Errorf("expected 3 pair balances, got %+v", resp.Msg.Balances)
	}

	totals := make(map[string]UserBalance)
	for _, b := range resp.Msg.Totals {
		totals[b.UserID] = b
	}
	if len(totals) != 4 {
		t.Errorf("expected totals for all 4 members, got %d", len(totals))
	}
	if !totals["alice"].Net.Equal(dec("60")) {
		t.Errorf("alice net: expected 60, got %s", totals["alice"].Net)
	}
	if !totals["bob"].Net.IsZero() {
		t.Errorf("bob net: expected 0, got %s", totals["bob"].Net)
	}
	if !totals["carol"].Net.Equal(dec("-60")) {
		t.Errorf("carol net: expected -60, got %s", totals["carol"].Net)
	}
	if !totals["dave"].Net.IsZero() {
		t.Errorf("dave net: expected 0, got %s", totals["dave"].Net)
	}

	// carol pays alice 60 and bob is square
	if len(resp.Msg.Suggestions) != 1 {
		t.Fatalf("expected 1 suggested payment, got %+v", resp.Msg.Suggestions)
	}
	p := resp.Msg.Suggestions[0]
	if p.FromID != "carol" || p.ToID != "alice" || !p.Amount.Equal(dec("60")) {
		t.Errorf("expected carol -> alice 60, got %+v", p)
	}

	groupResp, err := srv.groups.GetGroup(ctx, as("alice", &GetGroupRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if !groupResp.Msg.Group.TotalExpense.Equal(dec("120")) {
		t.Errorf("total expense: expected 120, got %s", groupResp.Msg.Group.TotalExpense)
	}
}
