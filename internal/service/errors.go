package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/metrics"
	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/settlement"
	"github.com/mmynk/splitwiser/internal/storage"
)

var (
	errAuthRequired = errors.New("authentication required")
	errNotMember    = errors.New("you are not a member of this group")
)

// toConnectError maps domain errors to connect codes. Invariant violations are
// logged at error level and counted; they indicate a bug, not bad input.
func toConnectError(ctx context.Context, logger *slog.Logger, err error) error {
	var verr *calculator.ValidationError
	var ierr *calculator.InvariantViolation
	switch {
	case errors.As(err, &verr):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, settlement.ErrForbidden), errors.Is(err, errNotMember):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, storage.ErrAlreadySettled):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.As(err, &ierr):
		metrics.InvariantViolations.WithLabelValues(ierr.Check).Inc()
		logger.ErrorContext(ctx, "Invariant violated", "check", ierr.Check, "detail", ierr.Detail)
		return connect.NewError(connect.CodeInternal, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// requireUser returns the authenticated user ID or an Unauthenticated error.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	return userID, nil
}

// validateRequest runs the message's validate tags.
func validateRequest(msg any) error {
	if err := calculator.ValidateStruct(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

func sortUserBalances(b []UserBalance) {
	sort.Slice(b, func(i, j int) bool { return b[i].UserID < b[j].UserID })
}

func isMember(userID string, members []string) bool {
	for _, m := range members {
		if m == userID {
			return true
		}
	}
	return false
}

// findNewMembers returns the ids not already in existing, without duplicates.
func findNewMembers(ids, existing []string) []string {
	seen := make(map[string]bool, len(existing)+len(ids))
	for _, m := range existing {
		seen[m] = true
	}
	var newOnes []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		newOnes = append(newOnes, id)
	}
	return newOnes
}

func notMember(groupID string) error {
	return fmt.Errorf("group %s: %w", groupID, errNotMember)
}
