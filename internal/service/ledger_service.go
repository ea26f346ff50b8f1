package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/events"
	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/settlement"
	"github.com/mmynk/splitwiser/internal/storage"
)

// LedgerService implements the Connect LedgerService: expenses, direct
// transactions, balances and settlement.
type LedgerService struct {
	store     storage.Store
	applier   *settlement.Applier
	publisher events.Publisher
	logger    *slog.Logger
}

// NewLedgerService creates a LedgerService. The applier should share the publisher.
func NewLedgerService(store storage.Store, applier *settlement.Applier, publisher events.Publisher, logger *slog.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &LedgerService{
		store:     store,
		applier:   applier,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateExpense records an expense and the obligations it creates. The caller
// must be the payer or a participant. Participants of a group expense who are
// not yet members are added to the group.
func (s *LedgerService) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	s.logger.Info("CreateExpense request received",
		"group_id", msg.GroupID,
		"amount", msg.Amount.String(),
		"split_method", msg.SplitMethod,
		"participants_count", len(msg.Participants),
	)
	if err := validateRequest(msg); err != nil {
		return nil, err
	}

	payerID := msg.PayerID.String()
	if payerID == "" {
		payerID = userID
	}

	participants, err := splitParticipants(msg)
	if err != nil {
		s.logger.Warn("CreateExpense split failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}

	ids := participantIDs(participants)
	if payerID != userID && !isMember(userID, ids) && !middleware.IsAdmin(ctx) {
		return nil, connect.NewError(connect.CodePermissionDenied,
			fmt.Errorf("you must be the payer or a participant to create this expense"))
	}

	var group *models.Group
	if msg.GroupID != "" {
		if group, err = memberGroup(ctx, s.store, s.logger, msg.GroupID); err != nil {
			return nil, err
		}
	}

	expense := &models.Expense{
		Title:        strings.TrimSpace(msg.Title),
		PayerID:      payerID,
		Amount:       msg.Amount,
		GroupID:      msg.GroupID,
		Participants: participants,
		CreatedAt:    time.Now().Unix(),
	}
	obligations, err := calculator.ExpenseObligations(expense)
	if err != nil {
		s.logger.Warn("CreateExpense validation failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}
	if expense.Title == "" {
		expense.Title = s.expenseTitle(ctx, payerID, ids)
	}

	if err := s.store.CreateExpense(ctx, expense, obligations); err != nil {
		s.logger.Error("CreateExpense failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}
	if group != nil {
		autoAddMembers(ctx, s.store, s.logger, group, append(ids, payerID))
	}

	obligationIDs := make([]string, len(obligations))
	for i := range obligations {
		obligationIDs[i] = obligations[i].ID
	}
	events.Emit(ctx, s.publisher, s.logger, events.TopicExpenseCreated, events.ExpenseCreated{
		ExpenseID:     expense.ID,
		GroupID:       expense.GroupID,
		PayerID:       expense.PayerID,
		Amount:        expense.Amount,
		ObligationIDs: obligationIDs,
		OccurredAt:    expense.CreatedAt,
	})

	s.logger.Info("Expense created",
		"expense_id", expense.ID,
		"obligations_count", len(obligations),
	)
	return connect.NewResponse(&CreateExpenseResponse{
		Expense:     toExpense(expense),
		Obligations: toObligations(obligations),
	}), nil
}

// splitParticipants turns the request into participant shares using its split
// method. Settled flags from the request are kept.
func splitParticipants(msg *CreateExpenseRequest) ([]models.Participant, error) {
	var (
		participants []models.Participant
		err          error
	)
	switch msg.SplitMethod {
	case SplitEqual:
		participants, err = calculator.SplitEqual(msg.Amount, recordIDs(msg.Participants))
	case SplitPercent:
		percents := make(map[string]decimal.Decimal, len(msg.Participants))
		for _, p := range msg.Participants {
			if _, dup := percents[p.UserID.String()]; dup {
				return nil, &calculator.ValidationError{Field: "participants", Message: "duplicate participant " + p.UserID.String()}
			}
			percents[p.UserID.String()] = p.Share
		}
		participants, err = calculator.SplitPercent(msg.Amount, percents)
	case SplitItemized:
		if len(msg.Items) == 0 {
			return nil, &calculator.ValidationError{Field: "items", Message: "itemized split needs at least one item"}
		}
		items := make([]calculator.Item, len(msg.Items))
		subtotal := msg.Subtotal
		for i, item := range msg.Items {
			items[i] = calculator.Item{Description: item.Description, Amount: item.Amount, AssignedTo: item.AssignedTo}
			if msg.Subtotal.IsZero() {
				subtotal = subtotal.Add(item.Amount)
			}
		}
		participants, err = calculator.SplitItemized(items, msg.Amount, subtotal, recordIDs(msg.Participants))
	default:
		participants = make([]models.Participant, len(msg.Participants))
		for i, p := range msg.Participants {
			participants[i] = models.Participant{UserID: p.UserID.String(), Share: p.Share}
		}
	}
	if err != nil {
		return nil, err
	}

	settled := make(map[string]bool, len(msg.Participants))
	for _, p := range msg.Participants {
		settled[p.UserID.String()] = p.IsSettled
	}
	for i := range participants {
		participants[i].IsSettled = settled[participants[i].UserID]
	}
	return participants, nil
}

func recordIDs(records []models.ParticipantRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.UserID.String()
	}
	return ids
}

func participantIDs(participants []models.Participant) []string {
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	return ids
}

// expenseTitle builds a default title from the other participants' names.
func (s *LedgerService) expenseTitle(ctx context.Context, payerID string, ids []string) string {
	var others []string
	for _, id := range ids {
		if id != payerID {
			others = append(others, id)
		}
	}
	users, err := s.store.GetUsersByIDs(ctx, others)
	if err != nil {
		s.logger.Warn("Failed to load participant names", "error", err)
	}
	names := make([]string, len(others))
	for i, id := range others {
		names[i] = id
		if u, ok := users[id]; ok && u.DisplayName != "" {
			names[i] = u.DisplayName
		}
	}
	return generateTitle(names, time.Now())
}

// generateTitle creates an auto-generated title from participant names.
func generateTitle(names []string, now time.Time) string {
	if len(names) == 0 {
		return fmt.Sprintf("Expense - %s", now.Format("Jan 2, 2006"))
	}
	if len(names) <= 3 {
		return fmt.Sprintf("Split with %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Split with %s and %d others",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}

// loadExpense fetches an expense the caller took part in or can see through
// its group.
func (s *LedgerService) loadExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		s.logger.Error("GetExpense failed", "expense_id", expenseID, "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}
	if expense.PayerID == userID || isMember(userID, participantIDs(expense.Participants)) || middleware.IsAdmin(ctx) {
		return expense, nil
	}
	if expense.GroupID != "" {
		if _, err := memberGroup(ctx, s.store, s.logger, expense.GroupID); err == nil {
			return expense, nil
		}
	}
	return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("expense %s is not visible to you", expenseID))
}

// GetExpense returns an expense with its obligations.
func (s *LedgerService) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	s.logger.Info("GetExpense request received", "expense_id", req.Msg.ExpenseID)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	expense, err := s.loadExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}
	obligations, err := s.store.ListObligations(ctx, storage.ObligationFilter{ExpenseID: expense.ID})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, err)
	}
	return connect.NewResponse(&GetExpenseResponse{
		Expense:     toExpense(expense),
		Obligations: toObligations(obligations),
	}), nil
}

// ListExpenses returns a group's expenses, newest first.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	s.logger.Info("ListExpenses request received", "group_id", req.Msg.GroupID)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	group, err := memberGroup(ctx, s.store, s.logger, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("ListExpenses failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}
	out := make([]Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toExpense(e)
	}
	return connect.NewResponse(&ListExpensesResponse{Expenses: out}), nil
}

// DeleteExpense removes an expense and reverts everything it caused. Only the
// payer or an admin may delete.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	s.logger.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	expense, err := s.loadExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}
	if expense.PayerID != middleware.GetUserID(ctx) && !middleware.IsAdmin(ctx) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the payer can delete this expense"))
	}

	if err := s.store.DeleteExpense(ctx, expense.ID); err != nil {
		s.logger.Error("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}
	s.logger.Info("Expense deleted", "expense_id", expense.ID)
	return connect.NewResponse(&DeleteExpenseResponse{}), nil
}

// RecordTransaction stores a direct debt between two users. The caller must be
// one of them. Transactions start open; payments go through Settle.
func (s *LedgerService) RecordTransaction(ctx context.Context, req *connect.Request[RecordTransactionRequest]) (*connect.Response[ObligationResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	rec := req.Msg.Transaction
	s.logger.Info("RecordTransaction request received",
		"sender_id", rec.SenderID.String(),
		"receiver_id", rec.ReceiverID.String(),
		"amount", rec.Amount.String(),
	)

	if rec.IsSettled {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("a new transaction cannot be settled; record it, then call Settle"))
	}
	rec.ID = ""
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	ob, err := calculator.NormalizeTransaction(rec)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, err)
	}
	if !ob.Involves(userID) && !middleware.IsAdmin(ctx) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you must be the sender or the receiver"))
	}
	if ob.GroupID != "" {
		if _, err := memberGroup(ctx, s.store, s.logger, ob.GroupID); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateObligation(ctx, &ob); err != nil {
		s.logger.Error("RecordTransaction failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}
	s.logger.Info("Transaction recorded", "obligation_id", ob.ID)
	return connect.NewResponse(&ObligationResponse{Obligation: toObligation(&ob)}), nil
}

// ListObligations lists the caller's obligations, oldest first.
func (s *LedgerService) ListObligations(ctx context.Context, req *connect.Request[ListObligationsRequest]) (*connect.Response[ListObligationsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ListObligations request received", "user_id", userID, "group_id", req.Msg.GroupID)

	obligations, err := s.store.ListObligations(ctx, storage.ObligationFilter{
		UserID:         userID,
		CounterpartyID: req.Msg.CounterpartyID,
		GroupID:        req.Msg.GroupID,
		Settled:        req.Msg.Settled,
		Since:          req.Msg.Since,
		Until:          req.Msg.Until,
	})
	if err != nil {
		s.logger.Error("ListObligations failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}
	return connect.NewResponse(&ListObligationsResponse{Obligations: toObligations(obligations)}), nil
}

// openObligations loads the caller's unsettled obligations in a scope.
func (s *LedgerService) openObligations(ctx context.Context, userID string, scope calculator.Scope) ([]models.Obligation, error) {
	open := false
	filter := storage.ObligationFilter{Settled: &open}
	switch scope.Kind {
	case calculator.ScopeGroup:
		filter.GroupID = scope.GroupID
	case calculator.ScopeFriend:
		filter.UserID, filter.CounterpartyID = scope.Pair.A, scope.Pair.B
	default:
		filter.UserID = userID
	}
	obligations, err := s.store.ListObligations(ctx, filter)
	if err != nil {
		return nil, err
	}
	return calculator.FilterScope(obligations, scope), nil
}

// GetBalances computes the caller's balances from open obligations, optionally
// narrowed to a group or a friend. Totals hold only the caller.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GetBalances request received", "user_id", userID, "group_id", req.Msg.GroupID, "friend_id", req.Msg.FriendID)

	scope := calculator.GlobalScope()
	switch {
	case req.Msg.GroupID != "" && req.Msg.FriendID != "":
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("groupId and friendId are exclusive"))
	case req.Msg.GroupID != "":
		if _, err := memberGroup(ctx, s.store, s.logger, req.Msg.GroupID); err != nil {
			return nil, err
		}
		scope = calculator.GroupScope(req.Msg.GroupID)
	case req.Msg.FriendID != "":
		scope = calculator.FriendScope(userID, req.Msg.FriendID)
	}

	obligations, err := s.openObligations(ctx, userID, scope)
	if err != nil {
		s.logger.Error("GetBalances failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}

	balances := calculator.Aggregate(obligations)
	mine := make(calculator.BalanceMap)
	for pair, v := range balances {
		if pair.A == userID || pair.B == userID {
			mine[pair] = v
		}
	}
	totals := calculator.PerUserTotals(mine, userID)
	return connect.NewResponse(&BalancesResponse{
		Balances: toPairBalances(mine),
		Totals:   toUserBalances(map[string]calculator.UserTotals{userID: totals[userID]}),
	}), nil
}

// GetFriendBalance returns the cached balance between the caller and a friend.
func (s *LedgerService) GetFriendBalance(ctx context.Context, req *connect.Request[GetFriendBalanceRequest]) (*connect.Response[GetFriendBalanceResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	fb, err := s.store.GetFriendBalance(ctx, userID, req.Msg.FriendID)
	if err != nil {
		s.logger.Error("GetFriendBalance failed", "friend_id", req.Msg.FriendID, "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}
	return connect.NewResponse(&GetFriendBalanceResponse{
		FriendID: req.Msg.FriendID,
		Net:      fb.NetFor(userID),
	}), nil
}

// ListFriendBalances returns every non-zero cached balance of the caller.
func (s *LedgerService) ListFriendBalances(ctx context.Context, req *connect.Request[ListFriendBalancesRequest]) (*connect.Response[ListFriendBalancesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.store.ListFriendBalances(ctx, userID)
	if err != nil {
		s.logger.Error("ListFriendBalances failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}
	friends := make([]GetFriendBalanceResponse, len(balances))
	for i, fb := range balances {
		friends[i] = GetFriendBalanceResponse{FriendID: fb.Other(userID), Net: fb.NetFor(userID)}
	}
	return connect.NewResponse(&ListFriendBalancesResponse{Friends: friends}), nil
}

// SimplifyDebts suggests the fewest payments that settle a group, or the
// caller's obligations outside any group.
func (s *LedgerService) SimplifyDebts(ctx context.Context, req *connect.Request[SimplifyDebtsRequest]) (*connect.Response[SimplifyDebtsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("SimplifyDebts request received", "user_id", userID, "group_id", req.Msg.GroupID)

	var obligations []models.Obligation
	if req.Msg.GroupID != "" {
		if _, err := memberGroup(ctx, s.store, s.logger, req.Msg.GroupID); err != nil {
			return nil, err
		}
		obligations, err = s.openObligations(ctx, userID, calculator.GroupScope(req.Msg.GroupID))
	} else {
		obligations, err = s.openObligations(ctx, userID, calculator.GlobalScope())
		obligations = calculator.FilterScope(obligations, calculator.GroupScope(""))
	}
	if err != nil {
		s.logger.Error("SimplifyDebts failed", "error", err)
		return nil, toConnectError(ctx, s.logger, err)
	}

	payments, err := calculator.SimplifyDebts(calculator.Aggregate(obligations))
	if err != nil {
		return nil, toConnectError(ctx, s.logger, err)
	}
	s.logger.Info("SimplifyDebts successful", "obligations_count", len(obligations), "payments_count", len(payments))
	return connect.NewResponse(&SimplifyDebtsResponse{Payments: toPayments(payments)}), nil
}

// Settle records a payment against one obligation. Only the ower or an admin
// may settle. Settling an already settled obligation returns it unchanged.
func (s *LedgerService) Settle(ctx context.Context, req *connect.Request[SettleRequest]) (*connect.Response[ObligationResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Settle request received",
		"obligation_id", req.Msg.ObligationID,
		"method", string(req.Msg.Method),
		"amount", req.Msg.Amount.String(),
	)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	ob, err := s.store.GetObligation(ctx, req.Msg.ObligationID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, err)
	}
	actor := &models.User{ID: userID, IsAdmin: middleware.IsAdmin(ctx)}
	if !settlement.CanSettle(ob, actor) {
		s.logger.Warn("Settle denied", "obligation_id", ob.ID, "user_id", userID)
		return nil, toConnectError(ctx, s.logger, settlement.ErrForbidden)
	}

	updated, err := s.applier.Settle(ctx, settlement.Request{
		ObligationID: ob.ID,
		Method:       req.Msg.Method,
		Amount:       req.Msg.Amount,
		ActorID:      userID,
		Note:         req.Msg.Note,
	})
	if err != nil {
		return nil, toConnectError(ctx, s.logger, err)
	}
	return connect.NewResponse(&ObligationResponse{Obligation: toObligation(updated)}), nil
}

// RequestSettlement lets the payer remind the ower. Nothing changes.
func (s *LedgerService) RequestSettlement(ctx context.Context, req *connect.Request[RequestSettlementRequest]) (*connect.Response[ObligationResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("RequestSettlement request received", "obligation_id", req.Msg.ObligationID)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	ob, err := s.applier.RequestSettlement(ctx, req.Msg.ObligationID, userID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, err)
	}
	return connect.NewResponse(&ObligationResponse{Obligation: toObligation(ob)}), nil
}
