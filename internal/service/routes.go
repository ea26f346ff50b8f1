package service

import (
	"net/http"

	"connectrpc.com/connect"
)

// Fully-qualified service names. Paths follow the Connect protocol:
// /<service>/<method>.
const (
	AuthServiceName   = "splitwiser.v1.AuthService"
	GroupServiceName  = "splitwiser.v1.GroupService"
	LedgerServiceName = "splitwiser.v1.LedgerService"
)

// Procedure paths.
const (
	AuthServiceRegisterProcedure       = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure          = "/" + AuthServiceName + "/Login"
	AuthServiceLogoutProcedure         = "/" + AuthServiceName + "/Logout"
	AuthServiceGetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"

	GroupServiceCreateGroupProcedure      = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure         = "/" + GroupServiceName + "/GetGroup"
	GroupServiceListGroupsProcedure       = "/" + GroupServiceName + "/ListGroups"
	GroupServiceAddMembersProcedure       = "/" + GroupServiceName + "/AddMembers"
	GroupServiceGetGroupBalancesProcedure = "/" + GroupServiceName + "/GetGroupBalances"

	LedgerServiceCreateExpenseProcedure      = "/" + LedgerServiceName + "/CreateExpense"
	LedgerServiceGetExpenseProcedure         = "/" + LedgerServiceName + "/GetExpense"
	LedgerServiceListExpensesProcedure       = "/" + LedgerServiceName + "/ListExpenses"
	LedgerServiceDeleteExpenseProcedure      = "/" + LedgerServiceName + "/DeleteExpense"
	LedgerServiceRecordTransactionProcedure  = "/" + LedgerServiceName + "/RecordTransaction"
	LedgerServiceListObligationsProcedure    = "/" + LedgerServiceName + "/ListObligations"
	LedgerServiceGetBalancesProcedure        = "/" + LedgerServiceName + "/GetBalances"
	LedgerServiceGetFriendBalanceProcedure   = "/" + LedgerServiceName + "/GetFriendBalance"
	LedgerServiceListFriendBalancesProcedure = "/" + LedgerServiceName + "/ListFriendBalances"
	LedgerServiceSimplifyDebtsProcedure      = "/" + LedgerServiceName + "/SimplifyDebts"
	LedgerServiceSettleProcedure             = "/" + LedgerServiceName + "/Settle"
	LedgerServiceRequestSettlementProcedure  = "/" + LedgerServiceName + "/RequestSettlement"
)

// NewAuthServiceHandler builds an HTTP handler for svc. It returns the path to
// mount it on.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, WithJSONCodec())
	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(AuthServiceLogoutProcedure, connect.NewUnaryHandler(AuthServiceLogoutProcedure, svc.Logout, opts...))
	mux.Handle(AuthServiceGetCurrentUserProcedure, connect.NewUnaryHandler(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	return "/" + AuthServiceName + "/", mux
}

// NewGroupServiceHandler builds an HTTP handler for svc. It returns the path to
// mount it on.
func NewGroupServiceHandler(svc *GroupService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, WithJSONCodec())
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure, connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GroupServiceAddMembersProcedure, connect.NewUnaryHandler(GroupServiceAddMembersProcedure, svc.AddMembers, opts...))
	mux.Handle(GroupServiceGetGroupBalancesProcedure, connect.NewUnaryHandler(GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...))
	return "/" + GroupServiceName + "/", mux
}

// NewLedgerServiceHandler builds an HTTP handler for svc. It returns the path to
// mount it on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, WithJSONCodec())
	mux := http.NewServeMux()
	mux.Handle(LedgerServiceCreateExpenseProcedure, connect.NewUnaryHandler(LedgerServiceCreateExpenseProcedure, svc.CreateExpense, opts...))
	mux.Handle(LedgerServiceGetExpenseProcedure, connect.NewUnaryHandler(LedgerServiceGetExpenseProcedure, svc.GetExpense, opts...))
	mux.Handle(LedgerServiceListExpensesProcedure, connect.NewUnaryHandler(LedgerServiceListExpensesProcedure, svc.ListExpenses, opts...))
	mux.Handle(LedgerServiceDeleteExpenseProcedure, connect.NewUnaryHandler(LedgerServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...))
	mux.Handle(LedgerServiceRecordTransactionProcedure, connect.NewUnaryHandler(LedgerServiceRecordTransactionProcedure, svc.RecordTransaction, opts...))
	mux.Handle(LedgerServiceListObligationsProcedure, connect.NewUnaryHandler(LedgerServiceListObligationsProcedure, svc.ListObligations, opts...))
	mux.Handle(LedgerServiceGetBalancesProcedure, connect.NewUnaryHandler(LedgerServiceGetBalancesProcedure, svc.GetBalances, opts...))
	mux.Handle(LedgerServiceGetFriendBalanceProcedure, connect.NewUnaryHandler(LedgerServiceGetFriendBalanceProcedure, svc.GetFriendBalance, opts...))
	mux.Handle(LedgerServiceListFriendBalancesProcedure, connect.NewUnaryHandler(LedgerServiceListFriendBalancesProcedure, svc.ListFriendBalances, opts...))
	mux.Handle(LedgerServiceSimplifyDebtsProcedure, connect.NewUnaryHandler(LedgerServiceSimplifyDebtsProcedure, svc.SimplifyDebts, opts...))
	mux.Handle(LedgerServiceSettleProcedure, connect.NewUnaryHandler(LedgerServiceSettleProcedure, svc.Settle, opts...))
	mux.Handle(LedgerServiceRequestSettlementProcedure, connect.NewUnaryHandler(LedgerServiceRequestSettlementProcedure, svc.RequestSettlement, opts...))
	return "/" + LedgerServiceName + "/", mux
}
