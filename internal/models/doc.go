// Package models defines the core domain models for Splitwiser.
//
// # Ledger Models
//
// Every money movement between two people is reduced to an Obligation:
//   - Expense: a payment one user fronted, shared among participants
//   - Obligation: one directed debt (ower -> payer) derived from an expense share
//     or recorded directly as a transaction
//   - Settlement: the payment event that (partially or fully) resolved an obligation
//
// Balances are never stored as a source of truth. FriendBalance and
// Group.TotalExpense are denormalized caches that the storage layer keeps in step
// with obligations inside the same transaction, and that the reconciler can rebuild.
//
// # Input Shapes
//
// ExpenseRecord, ParticipantRecord and TransactionRecord accept the loose JSON shapes
// clients send (participants keyed by "user" or "userId", users given as ids or
// objects). They are only consumed by the calculator's normalization functions.
//
// # Design Principles
//
// 1. **Exact money**: amounts are decimal.Decimal, never float64
// 2. **Avoid circular references**: Use ID strings instead of pointers for relationships
// 3. **Unix timestamps**: CreatedAt fields are Unix seconds
package models
