package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// AuthClient calls a remote AuthService.
type AuthClient struct {
	register       *connect.Client[RegisterRequest, AuthResponse]
	login          *connect.Client[LoginRequest, AuthResponse]
	logout         *connect.Client[LogoutRequest, LogoutResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
}

// NewAuthClient creates a client for the AuthService at baseURL.
func NewAuthClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, WithJSONCodec())
	return &AuthClient{
		register:       connect.NewClient[RegisterRequest, AuthResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:          connect.NewClient[LoginRequest, AuthResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		logout:         connect.NewClient[LogoutRequest, LogoutResponse](httpClient, baseURL+AuthServiceLogoutProcedure, opts...),
		getCurrentUser: connect.NewClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL+AuthServiceGetCurrentUserProcedure, opts...),
	}
}

func (c *AuthClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthClient) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	return c.logout.CallUnary(ctx, req)
}

func (c *AuthClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

// GroupClient calls a remote GroupService.
type GroupClient struct {
	createGroup      *connect.Client[CreateGroupRequest, GroupResponse]
	getGroup         *connect.Client[GetGroupRequest, GroupResponse]
	listGroups       *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addMembers       *connect.Client[AddMembersRequest, GroupResponse]
	getGroupBalances *connect.Client[GetGroupBalancesRequest, BalancesResponse]
}

// NewGroupClient creates a client for the GroupService at baseURL.
func NewGroupClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, WithJSONCodec())
	return &GroupClient{
		createGroup:      connect.NewClient[CreateGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:         connect.NewClient[GetGroupRequest, GroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:       connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		addMembers:       connect.NewClient[AddMembersRequest, GroupResponse](httpClient, baseURL+GroupServiceAddMembersProcedure, opts...),
		getGroupBalances: connect.NewClient[GetGroupBalancesRequest, BalancesResponse](httpClient, baseURL+GroupServiceGetGroupBalancesProcedure, opts...),
	}
}

func (c *GroupClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupClient) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[GroupResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *GroupClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

// LedgerClient calls a remote LedgerService.
type LedgerClient struct {
	createExpense      *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	getExpense         *connect.Client[GetExpenseRequest, GetExpenseResponse]
	listExpenses       *connect.Client[ListExpensesRequest, ListExpensesResponse]
	deleteExpense      *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	recordTransaction  *connect.Client[RecordTransactionRequest, ObligationResponse]
	listObligations    *connect.Client[ListObligationsRequest, ListObligationsResponse]
	getBalances        *connect.Client[GetBalancesRequest, BalancesResponse]
	getFriendBalance   *connect.Client[GetFriendBalanceRequest, GetFriendBalanceResponse]
	listFriendBalances *connect.Client[ListFriendBalancesRequest, ListFriendBalancesResponse]
	simplifyDebts      *connect.Client[SimplifyDebtsRequest, SimplifyDebtsResponse]
	settle             *connect.Client[SettleRequest, ObligationResponse]
	requestSettlement  *connect.Client[RequestSettlementRequest, ObligationResponse]
}

// NewLedgerClient creates a client for the LedgerService at baseURL.
func NewLedgerClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, WithJSONCodec())
	return &LedgerClient{
		createExpense:      connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+LedgerServiceCreateExpenseProcedure, opts...),
		getExpense:         connect.NewClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL+LedgerServiceGetExpenseProcedure, opts...),
		listExpenses:       connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+LedgerServiceListExpensesProcedure, opts...),
		deleteExpense:      connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+LedgerServiceDeleteExpenseProcedure, opts...),
		recordTransaction:  connect.NewClient[RecordTransactionRequest, ObligationResponse](httpClient, baseURL+LedgerServiceRecordTransactionProcedure, opts...),
		listObligations:    connect.NewClient[ListObligationsRequest, ListObligationsResponse](httpClient, baseURL+LedgerServiceListObligationsProcedure, opts...),
		getBalances:        connect.NewClient[GetBalancesRequest, BalancesResponse](httpClient, baseURL+LedgerServiceGetBalancesProcedure, opts...),
		getFriendBalance:   connect.NewClient[GetFriendBalanceRequest, GetFriendBalanceResponse](httpClient, baseURL+LedgerServiceGetFriendBalanceProcedure, opts...),
		listFriendBalances: connect.NewClient[ListFriendBalancesRequest, ListFriendBalancesResponse](httpClient, baseURL+LedgerServiceListFriendBalancesProcedure, opts...),
		simplifyDebts:      connect.NewClient[SimplifyDebtsRequest, SimplifyDebtsResponse](httpClient, baseURL+LedgerServiceSimplifyDebtsProcedure, opts...),
		settle:             connect.NewClient[SettleRequest, ObligationResponse](httpClient, baseURL+LedgerServiceSettleProcedure, opts...),
		requestSettlement:  connect.NewClient[RequestSettlementRequest, ObligationResponse](httpClient, baseURL+LedgerServiceRequestSettlementProcedure, opts...),
	}
}

func (c *LedgerClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *LedgerClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *LedgerClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *LedgerClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *LedgerClient) RecordTransaction(ctx context.Context, req *connect.Request[RecordTransactionRequest]) (*connect.Response[ObligationResponse], error) {
	return c.recordTransaction.CallUnary(ctx, req)
}

func (c *LedgerClient) ListObligations(ctx context.Context, req *connect.Request[ListObligationsRequest]) (*connect.Response[ListObligationsResponse], error) {
	return c.listObligations.CallUnary(ctx, req)
}

func (c *LedgerClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *LedgerClient) GetFriendBalance(ctx context.Context, req *connect.Request[GetFriendBalanceRequest]) (*connect.Response[GetFriendBalanceResponse], error) {
	return c.getFriendBalance.CallUnary(ctx, req)
}

func (c *LedgerClient) ListFriendBalances(ctx context.Context, req *connect.Request[ListFriendBalancesRequest]) (*connect.Response[ListFriendBalancesResponse], error) {
	return c.listFriendBalances.CallUnary(ctx, req)
}

func (c *LedgerClient) SimplifyDebts(ctx context.Context, req *connect.Request[SimplifyDebtsRequest]) (*connect.Response[SimplifyDebtsResponse], error) {
	return c.simplifyDebts.CallUnary(ctx, req)
}

func (c *LedgerClient) Settle(ctx context.Context, req *connect.Request[SettleRequest]) (*connect.Response[ObligationResponse], error) {
	return c.settle.CallUnary(ctx, req)
}

func (c *LedgerClient) RequestSettlement(ctx context.Context, req *connect.Request[RequestSettlementRequest]) (*connect.Response[ObligationResponse], error) {
	return c.requestSettlement.CallUnary(ctx, req)
}
