package dataset

import (
	"testing"
)

// ============================================================================
// CSV PARSING TESTS
// ============================================================================

var transactionsCSV = []byte(`transaction_id,transaction_date,amount (INR),sender_state,merchant_category,transaction_status
TXN001,2024-01-10,"1,500.50",Delhi,Grocery,SUCCESS
TXN002,2024-01-15,250,Maharashtra,Fuel,FAILED
TXN003,2024-02-01,980.25,Delhi,Entertainment,SUCCESS
TXN004,2024-02-20,,Karnataka,Grocery,SUCCESS
`)

func TestParseCSVTypes(t *testing.T) {
	tbl, err := ParseCSV(transactionsCSV)
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}

	if tbl.NumRows() != 4 {
		t.Fatalf("rows = %d, want 4", tbl.NumRows())
	}
	if got := tbl.ColType("amount (INR)"); got != ColNumber {
		t.Errorf("amount type = %v, want number", got)
	}
	if got := tbl.ColType("transaction_date"); got != ColDate {
		t.Errorf("date type = %v, want date", got)
	}
	if got := tbl.ColType("sender_state"); got != ColText {
		t.Errorf("state type = %v, want text", got)
	}

	// Comma-grouped numbers parse.
	if got := tbl.Value(0, "amount (INR)").Num; got != 1500.5 {
		t.Errorf("amount[0] = %v, want 1500.5", got)
	}
	// Empty numeric cell is null.
	if !tbl.Value(3, "amount (INR)").IsNull() {
		t.Error("empty amount cell must be null")
	}
	if got := MonthLabel(tbl.Value(2, "transaction_date").Time); got != "2024-02" {
		t.Errorf("date[2] month = %s, want 2024-02", got)
	}
}
