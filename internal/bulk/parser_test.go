package bulk

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/theadiisingh/finpol/internal/transaction"
)

func parseCSV(t *testing.T, csvData string) []*transaction.Transaction {
	t.Helper()
	txs, err := NewParser().ParseFile(context.Background(), []byte(csvData), "batch.csv", "bulk_upload")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	return txs
}

func TestParseFile_StandardHeaders(t *testing.T) {
	txs := parseCSV(t, strings.Join([]string{
		"amount,user_id,currency,country,merchant_type,device_risk_score",
		"1500.50,user_1,INR,India,retail,0.2",
		"2000000,user_2,USD,USA,crypto_exchange,0.9",
	}, "\n"))

	if len(txs) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Amount != 1500.50 || txs[0].UserID != "user_1" || txs[0].Currency != "INR" {
		t.Errorf("Unexpected first transaction: %+v", txs[0])
	}
	if txs[1].Country != "USA" || txs[1].MerchantType != "crypto_exchange" || txs[1].DeviceRiskScore != 0.9 {
		t.Errorf("Unexpected second transaction: %+v", txs[1])
	}
}

func TestParseFile_SynonymHeaders(t *testing.T) {
	txs := parseCSV(t, strings.Join([]string{
		"amt,customer_id,curr,nation,merchant,narration",
		"\"1,234.56\",cust_9,EUR,Germany,electronics,laptop purchase",
	}, "\n"))

	if len(txs) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(txs))
	}
	tx := txs[0]
	if tx.Amount != 1234.56 {
		t.Errorf("Expected comma-stripped amount 1234.56, got %v", tx.Amount)
	}
	if tx.UserID != "cust_9" || tx.Currency != "EUR" || tx.Country != "Germany" {
		t.Errorf("Synonym columns not mapped: %+v", tx)
	}
	if tx.MerchantType != "electronics" || tx.Description != "laptop purchase" {
		t.Errorf("Synonym columns not mapped: %+v", tx)
	}
}

func TestParseFile_DefaultsApplied(t *testing.T) {
	txs := parseCSV(t, "amount\n5000\n")

	tx := txs[0]
	if tx.Currency != "USD" {
		t.Errorf("Expected default currency USD, got %q", tx.Currency)
	}
	if tx.Country != "India" {
		t.Errorf("Expected default country India, got %q", tx.Country)
	}
	if tx.MerchantType != "retail" {
		t.Errorf("Expected default merchant_type retail, got %q", tx.MerchantType)
	}
	if tx.Type != transaction.TypeTransfer {
		t.Errorf("Expected default type transfer, got %q", tx.Type)
	}
	if tx.UserID != "bulk_upload" {
		t.Errorf("Expected default user ID, got %q", tx.UserID)
	}
	if tx.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestParseFile_RowsWithoutAmountDropped(t *testing.T) {
	txs := parseCSV(t, strings.Join([]string{
		"amount,user_id",
		"1000,user_1",
		",user_2",
		"not-a-number,user_3",
		"-50,user_4",
		"2000,user_5",
	}, "\n"))

	if len(txs) != 2 {
		t.Fatalf("Expected 2 usable transactions, got %d", len(txs))
	}
	if txs[0].UserID != "user_1" || txs[1].UserID != "user_5" {
		t.Errorf("Wrong rows kept: %v, %v", txs[0].UserID, txs[1].UserID)
	}
}

func TestParseFile_SequentialIDs(t *testing.T) {
	txs := parseCSV(t, "amount\n100\n200\n300\n")

	for i, tx := range txs {
		if !strings.HasPrefix(tx.ID, "TXN-") {
			t.Errorf("Expected TXN- prefix, got %q", tx.ID)
		}
		want := []string{"-0001", "-0002", "-0003"}[i]
		if !strings.HasSuffix(tx.ID, want) {
			t.Errorf("Expected suffix %s, got %q", want, tx.ID)
		}
	}
}

func TestParseFile_NoAmountColumn(t *testing.T) {
	_, err := NewParser().ParseFile(context.Background(), []byte("user_id,currency\nuser_1,USD\n"), "batch.csv", "u")
	if !errors.Is(err, ErrNoTransactions) {
		t.Fatalf("Expected ErrNoTransactions, got %v", err)
	}
}

func TestParseFile_AllRowsDropped(t *testing.T) {
	_, err := NewParser().ParseFile(context.Background(), []byte("amount\nabc\n"), "batch.csv", "u")
	if !errors.Is(err, ErrNoTransactions) {
		t.Fatalf("Expected ErrNoTransactions, got %v", err)
	}
}

func TestParseFile_UnsupportedFormat(t *testing.T) {
	_, err := NewParser().ParseFile(context.Background(), []byte("data"), "statement.pdf", "u")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFile_TransactionTypeParsing(t *testing.T) {
	txs := parseCSV(t, strings.Join([]string{
		"amount,type",
		"100,WITHDRAWAL",
		"200,bogus",
	}, "\n"))

	if txs[0].Type != transaction.TypeWithdrawal {
		t.Errorf("Expected withdrawal, got %q", txs[0].Type)
	}
	if txs[1].Type != transaction.TypeTransfer {
		t.Errorf("Expected unknown type to default to transfer, got %q", txs[1].Type)
	}
}

func TestParseFile_TimestampFormats(t *testing.T) {
	txs := parseCSV(t, strings.Join([]string{
		"amount,date",
		"100,2026-03-15",
		"200,2026-03-15T10:30:00Z",
	}, "\n"))

	if txs[0].Timestamp.Year() != 2026 || txs[0].Timestamp.Month() != 3 {
		t.Errorf("Date not parsed: %v", txs[0].Timestamp)
	}
	if txs[1].Timestamp.Hour() != 10 {
		t.Errorf("RFC3339 timestamp not parsed: %v", txs[1].Timestamp)
	}
}
