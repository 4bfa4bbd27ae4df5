// Package planning implements the financial planning projection engine.
//
// Given a snapshot of planning state (accounts, income, tax parameters), the
// recorded net worth history and the current date, Project computes a
// month-by-month ledger for one financial year. Months with a recorded net
// worth value are verified; all others are predicted from the previous month's
// end balance, scheduled transactions, salary deductions, transfers and
// credit card payments. Overview reduces the projected year into named summary
// rows.
//
// The engine is a pure function of its inputs. It performs no I/O and holds no
// state between calls; Cache provides optional memoization for callers that
// re-project the same inputs frequently.
package planning
