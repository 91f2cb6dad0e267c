package profiler

import (
	"testing"
	"time"

	"github.com/finlens-org/finlens/dataset"
)

// ============================================================================
// ROLE DETECTION TESTS
// ============================================================================

func upiTable() *dataset.Table {
	t := dataset.New(
		[]string{"transaction_id", "transaction_date", "amount (INR)", "sender_state",
			"merchant_category", "transaction type", "sender_bank", "transaction_status", "fraud_flag"},
		[]dataset.ColType{dataset.ColText, dataset.ColDate, dataset.ColNumber, dataset.ColText,
			dataset.ColText, dataset.ColText, dataset.ColText, dataset.ColText, dataset.ColNumber},
	)
	t.AppendRow(dataset.Str("TXN001"), dataset.Date(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		dataset.Num(1500), dataset.Str("Delhi"), dataset.Str("Grocery"), dataset.Str("P2P"),
		dataset.Str("HDFC"), dataset.Str("SUCCESS"), dataset.Num(0))
	return t
}

func TestDetectRolesKeywords(t *testing.T) {
	roles := DetectRoles(upiTable())

	want := map[string]string{
		dataset.RoleDate:            "transaction_date",
		dataset.RoleAmount:          "amount (INR)",
		dataset.RoleRegion:          "sender_state",
		dataset.RoleCategory:        "merchant_category",
		dataset.RoleTransactionType: "transaction type",
		dataset.RoleSenderBank:      "sender_bank",
		dataset.RoleStatus:          "transaction_status",
		dataset.RoleFraud:           "fraud_flag",
	}
	for role, col := range want {
		if got := roles.Col(role); got != col {
			t.Errorf("role %s = %q, want %q", role, got, col)
		}
	}
}

func TestAmountFallbackLargestMean(t *testing.T) {
	tbl := dataset.New(
		[]string{"user_id", "txn_total", "hour_of_day"},
		[]dataset.ColType{dataset.ColNumber, dataset.ColNumber, dataset.ColNumber},
	)
	tbl.AppendRow(dataset.Num(900001), dataset.Num(2500), dataset.Num(14))
	tbl.AppendRow(dataset.Num(900002), dataset.Num(4200), dataset.Num(9))

	roles := DetectRoles(tbl)
	// No amount keyword anywhere: id and hour columns are excluded, leaving
	// txn_total as the only candidate despite user_id's larger mean.
	if got := roles.Col(dataset.RoleAmount); got != "txn_total" {
		t.Errorf("amount fallback = %q, want txn_total", got)
	}
}

func TestDetectRolesEmptyTable(t *testing.T) {
	tbl := dataset.New([]string{"note"}, []dataset.ColType{dataset.ColText})
	roles := DetectRoles(tbl)
	if roles.Has(dataset.RoleAmount) || roles.Has(dataset.RoleDate) {
		t.Errorf("no roles expected on a text-only table, got %v", roles)
	}
}
