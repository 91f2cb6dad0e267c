package dataset

// ============================================================================
// ROLE MAP — Semantic role → physical column binding
// ============================================================================
// Produced by the profiler, read-only to the planner and executor. Partial:
// a dataset without a fraud flag simply has no RoleFraud entry.
// ============================================================================

// Semantic role names.
const (
	RoleAmount          = "amount"
	RoleDate            = "date"
	RoleRegion          = "region"
	RoleCategory        = "category"
	RoleStatus          = "status"
	RoleFraud           = "fraud"
	RoleTransactionType = "transaction_type"
	RoleSenderBank      = "sender_bank"
	RoleReceiverBank    = "receiver_bank"
	RoleBank            = "bank"
)

// RoleMap binds semantic roles to concrete column names.
type RoleMap map[string]string

// Col returns the column bound to a role, or "" when the role is absent.
func (r RoleMap) Col(role string) string {
	if r == nil {
		return ""
	}
	return r[role]
}

// Has reports whether a role is bound.
func (r RoleMap) Has(role string) bool { return r.Col(role) != "" }
