// Package bulk parses uploaded transaction files and runs the batch
// compliance flow over them.
package bulk

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/theadiisingh/finpol/internal/logging"
	"github.com/theadiisingh/finpol/internal/transaction"
)

var (
	// ErrUnsupportedFormat means the file extension has no parser.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoTransactions means the file parsed but contained no usable rows.
	ErrNoTransactions = errors.New("no transactions found in file")
)

// columnMappings maps each transaction field to the header names it may
// appear under in uploaded files. First match wins.
var columnMappings = map[string][]string{
	"amount":            {"amount", "amt", "value", "transaction_amount", "debit", "credit", "transaction_value"},
	"user_id":           {"user_id", "userid", "customer_id", "customerid", "account_holder", "user"},
	"currency":          {"currency", "curr", "currency_code"},
	"transaction_type":  {"type", "transaction_type", "txn_type", "transaction_category"},
	"description":       {"description", "desc", "memo", "narration", "details", "particulars"},
	"recipient_account": {"recipient", "beneficiary", "to_account", "receiver", "destination_account"},
	"sender_account":    {"sender", "from_account", "source_account", "payer"},
	"country":           {"country", "country_code", "nation"},
	"merchant_type":     {"merchant", "merchant_type", "category", "merchant_category", "mcc"},
	"timestamp":         {"date", "timestamp", "transaction_date", "date_time", "txn_date", "value_date"},
	"device_risk_score": {"device_risk_score", "device_risk", "device_score"},
}

// Parser extracts transactions from uploaded files. Only CSV is supported;
// spreadsheet and PDF statement parsing would slot in behind ParseFile.
type Parser struct{}

// NewParser creates a file parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses the file content into transactions. The filename's
// extension selects the parser. Rows without a resolvable amount are
// dropped; a file yielding zero rows is ErrNoTransactions.
func (p *Parser) ParseFile(ctx context.Context, content []byte, filename, userID string) ([]*transaction.Transaction, error) {
	ext := strings.ToLower(filename)
	if i := strings.LastIndex(ext, "."); i >= 0 {
		ext = ext[i+1:]
	}

	logging.L(ctx).Info("parsing upload", "filename", filename, "extension", ext)

	switch ext {
	case "csv":
		return p.parseCSV(ctx, content, userID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func (p *Parser) parseCSV(ctx context.Context, content []byte, userID string) ([]*transaction.Transaction, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Resolve each standard field to a column position.
	columns := make(map[string]int)
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	fields := make(map[string]int)
	for field, synonyms := range columnMappings {
		for _, syn := range synonyms {
			if idx, ok := columns[syn]; ok {
				fields[field] = idx
				break
			}
		}
	}

	if _, ok := fields["amount"]; !ok {
		return nil, fmt.Errorf("%w: no amount column", ErrNoTransactions)
	}

	var txs []*transaction.Transaction
	batchDate := time.Now().Format("20060102")
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logging.L(ctx).Warn("skipping malformed CSV row", "row", row, "error", err)
			row++
			continue
		}
		row++

		tx := p.buildTransaction(record, fields, userID)
		if tx == nil {
			continue
		}
		tx.ID = fmt.Sprintf("TXN-%s-%04d", batchDate, len(txs)+1)
		txs = append(txs, tx)
	}

	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	logging.L(ctx).Info("parsed transactions", "count", len(txs))
	return txs, nil
}

// buildTransaction maps one CSV record to a transaction, returning nil when
// the amount is missing or unparseable.
func (p *Parser) buildTransaction(record []string, fields map[string]int, userID string) *transaction.Transaction {
	get := func(field string) string {
		idx, ok := fields[field]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(get("amount"), ",", ""), 64)
	if err != nil || amount <= 0 {
		return nil
	}

	tx := &transaction.Transaction{
		UserID:           userID,
		Amount:           amount,
		Currency:         get("currency"),
		Country:          get("country"),
		MerchantType:     get("merchant_type"),
		Description:      get("description"),
		RecipientAccount: get("recipient_account"),
		SenderAccount:    get("sender_account"),
	}
	if uid := get("user_id"); uid != "" {
		tx.UserID = uid
	}
	if tx.MerchantType == "" {
		tx.MerchantType = "retail"
	}
	if score := get("device_risk_score"); score != "" {
		if v, err := strconv.ParseFloat(score, 64); err == nil && v >= 0 && v <= 1 {
			tx.DeviceRiskScore = v
		}
	}
	if typ := strings.ToLower(get("transaction_type")); typ != "" {
		switch transaction.Type(typ) {
		case transaction.TypeTransfer, transaction.TypePayment, transaction.TypeWithdrawal, transaction.TypeDeposit:
			tx.Type = transaction.Type(typ)
		}
	}
	if ts := get("timestamp"); ts != "" {
		tx.Timestamp = parseTimestamp(ts)
	}

	tx.Normalize()
	return tx
}

func parseTimestamp(s string) time.Time {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"01/02/2006",
		"02/01/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
