// Package finlens provides a deterministic natural-language analytics
// engine for tabular financial data.
//
// Usage:
//
//	import (
//	    "github.com/finlens-org/finlens/planner"
//	    "github.com/finlens-org/finlens/executor"
//	)
//
//	plan := planner.BuildPlan(question, roles, table.Columns())
//	result := executor.Execute(plan, table, roles)
//
// Questions are classified against an ordered regex table, compiled into a
// structured Plan (intent, aggregation, grouping, filters), and executed as
// plain tabular operations. The same question against the same data always
// produces the same answer — no model calls, no external services.
package finlens
