package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the FinPol MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAnalyzeTransaction = mcp.NewTool("analyze_transaction",
	mcp.WithDescription(
		"Analyze a financial transaction for fraud and compliance risk. "+
			"Returns a risk score (0-100), risk level (Low/Medium/High/Critical), "+
			"triggered risk factors, recommended actions, and a regulatory compliance "+
			"explanation for risky transactions."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("ID of the user who initiated the transaction")),
	mcp.WithNumber("amount",
		mcp.Required(),
		mcp.Description("Transaction amount (must be greater than zero)")),
	mcp.WithString("currency",
		mcp.Description("ISO currency code, e.g. 'INR' or 'USD' (default USD)")),
	mcp.WithString("country",
		mcp.Description("Country the transaction originates from (default India)")),
	mcp.WithString("merchant_type",
		mcp.Description("Merchant category, e.g. 'retail', 'crypto_exchange', 'gambling'")),
	mcp.WithNumber("device_risk_score",
		mcp.Description("Device risk score between 0.0 and 1.0")),
	mcp.WithString("transaction_type",
		mcp.Description("One of 'transfer', 'payment', 'withdrawal', 'deposit'"),
		mcp.Enum("transfer", "payment", "withdrawal", "deposit")),
	mcp.WithString("description",
		mcp.Description("Free-text description of the transaction")),
)

var ToolSearchRegulations = mcp.NewTool("search_regulations",
	mcp.WithDescription(
		"Search financial regulations (RBI, FATF, AML/KYC, PCI-DSS) by free-text query. "+
			"Returns the most relevant regulation snippets with their sources. "+
			"Use this to answer compliance questions or to check which rules apply to a scenario."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Free-text search query, e.g. 'cross-border crypto reporting requirements'")),
	mcp.WithNumber("top_k",
		mcp.Description("Number of snippets to return (default 3, max 20)")),
)

var ToolGetTransaction = mcp.NewTool("get_transaction",
	mcp.WithDescription(
		"Fetch a stored transaction record by ID, including its recorded risk score and level."),
	mcp.WithString("transaction_id",
		mcp.Required(),
		mcp.Description("The transaction ID, e.g. 'txn_a1b2c3'")),
)

var ToolListTransactions = mcp.NewTool("list_transactions",
	mcp.WithDescription(
		"List stored transaction records, newest first. "+
			"Use this to review recent activity before drilling into a specific transaction."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of records to return (default 20)")),
	mcp.WithNumber("offset",
		mcp.Description("Number of records to skip, for paging")),
)

var ToolComplianceReport = mcp.NewTool("compliance_report",
	mcp.WithDescription(
		"Generate a full compliance report for a stored transaction. "+
			"Re-runs the risk analysis and produces a regulatory explanation citing applicable rules."),
	mcp.WithString("transaction_id",
		mcp.Required(),
		mcp.Description("The stored transaction's ID")),
)
