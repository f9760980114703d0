package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *FinPolClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *FinPolClient) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeTransaction runs the full risk and compliance analysis.
func (h *Handlers) HandleAnalyzeTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	amount := req.GetFloat("amount", 0)
	if amount <= 0 {
		return mcp.NewToolResultError("amount must be greater than zero"), nil
	}

	tx := map[string]any{
		"userId": userID,
		"amount": amount,
	}
	if v := req.GetString("currency", ""); v != "" {
		tx["currency"] = v
	}
	if v := req.GetString("country", ""); v != "" {
		tx["country"] = v
	}
	if v := req.GetString("merchant_type", ""); v != "" {
		tx["merchantType"] = v
	}
	if v := req.GetFloat("device_risk_score", 0); v > 0 {
		tx["deviceRiskScore"] = v
	}
	if v := req.GetString("transaction_type", ""); v != "" {
		tx["transactionType"] = v
	}
	if v := req.GetString("description", ""); v != "" {
		tx["description"] = v
	}

	raw, err := h.client.AnalyzeTransaction(ctx, tx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	text, err := formatAnalysis(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse analysis: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleSearchRegulations runs a free-text regulation search.
func (h *Handlers) HandleSearchRegulations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	topK := req.GetInt("top_k", 0)

	raw, err := h.client.SearchRegulations(ctx, query, topK)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Regulation search failed: %v", err)), nil
	}

	text, err := formatRegulations(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse regulations: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetTransaction fetches a stored transaction record.
func (h *Handlers) HandleGetTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("transaction_id", "")
	if id == "" {
		return mcp.NewToolResultError("transaction_id is required"), nil
	}

	raw, err := h.client.GetTransaction(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get transaction: %v", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// HandleListTransactions lists stored transaction records.
func (h *Handlers) HandleListTransactions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	offset := req.GetInt("offset", 0)

	raw, err := h.client.ListTransactions(ctx, limit, offset)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list transactions: %v", err)), nil
	}

	text, err := formatTransactionList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse transactions: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleComplianceReport generates a full compliance report.
func (h *Handlers) HandleComplianceReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("transaction_id", "")
	if id == "" {
		return mcp.NewToolResultError("transaction_id is required"), nil
	}

	raw, err := h.client.ComplianceReport(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Report generation failed: %v", err)), nil
	}

	text, err := formatAnalysis(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse report: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

func formatAnalysis(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	if id := getString(m, "transactionId"); id != "" {
		fmt.Fprintf(&sb, "Transaction: %s\n", id)
	}
	if level := getString(m, "riskLevel"); level != "" {
		fmt.Fprintf(&sb, "Risk Level: %s", level)
		if score, ok := getFloat(m, "riskScore"); ok {
			fmt.Fprintf(&sb, " (score %.0f/100)", score)
		}
		sb.WriteString("\n")
	}
	if approve, ok := m["shouldApprove"].(bool); ok {
		if approve {
			sb.WriteString("Decision: Approve\n")
		} else {
			sb.WriteString("Decision: Hold for review\n")
		}
	}

	if factors := getStrings(m, "riskFactors"); len(factors) > 0 {
		sb.WriteString("\nRisk Factors:\n")
		for _, f := range factors {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
	}
	if recs := getStrings(m, "recommendations"); len(recs) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, r := range recs {
			fmt.Fprintf(&sb, "  - %s\n", r)
		}
	}
	if expl := getString(m, "complianceExplanation"); expl != "" {
		fmt.Fprintf(&sb, "\nCompliance Explanation:\n%s\n", expl)
	}

	return sb.String(), nil
}

func formatRegulations(raw json.RawMessage) (string, error) {
	var resp struct {
		Regulations []struct {
			Content string `json:"content"`
			Source  string `json:"source"`
		} `json:"regulations"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Regulations) == 0 {
		return "No regulations found for this query.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d regulation(s):\n\n", len(resp.Regulations))
	for i, r := range resp.Regulations {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Content)
		if r.Source != "" {
			fmt.Fprintf(&sb, "   Source: %s\n", r.Source)
		}
		if i < len(resp.Regulations)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func formatTransactionList(raw json.RawMessage) (string, error) {
	var resp struct {
		Transactions []map[string]any `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Transactions) == 0 {
		return "No transactions recorded.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d transaction(s):\n\n", len(resp.Transactions))
	for i, t := range resp.Transactions {
		id := getString(t, "id")
		user := getString(t, "userId")
		level := getString(t, "riskLevel")
		amount, _ := getFloat(t, "amount")
		currency := getString(t, "currency")
		fmt.Fprintf(&sb, "%d. %s\n", i+1, id)
		fmt.Fprintf(&sb, "   User: %s | Amount: %.2f %s", user, amount, currency)
		if level != "" {
			fmt.Fprintf(&sb, " | Risk: %s", level)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty strings.Builder
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	enc := json.NewEncoder(&pretty)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return string(raw)
	}
	return strings.TrimRight(pretty.String(), "\n")
}

// getString extracts a string value from a map.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// getStrings extracts a []string from a map value that unmarshalled as []any.
func getStrings(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
