package models

// Budget is a budget on the destination ledger
type Budget struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// Account is a budget account. Balance is in milliunits.
type Account struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance int64  `json:"balance"`
	Closed  bool   `json:"closed"`
	Deleted bool   `json:"deleted"`
}

// CategoryGroup groups budget categories
type CategoryGroup struct {
	ID         string     `json:"id" validate:"required"`
	Name       string     `json:"name"`
	Hidden     bool       `json:"hidden"`
	Deleted    bool       `json:"deleted"`
	Categories []Category `json:"categories" validate:"dive"`
}

// Category is a budget category for the current month. Amounts are in milliunits.
type Category struct {
	ID              string `json:"id" validate:"required"`
	CategoryGroupID string `json:"category_group_id"`
	Name            string `json:"name"`
	Hidden          bool   `json:"hidden"`
	Budgeted        int64  `json:"budgeted"`
	Activity        int64  `json:"activity"`
	Balance         int64  `json:"balance"`
	Deleted         bool   `json:"deleted"`
}

// FundingAdjustment is the balancer's verdict for one credit-card category
type FundingAdjustment struct {
	CategoryID      string `json:"category_id"`
	Category        string `json:"category"`
	AccountBalance  int64  `json:"account_balance"`
	CategoryBalance int64  `json:"category_balance"`
	NeededBalance   int64  `json:"needed_balance"`
	Delta           int64  `json:"delta"`
	Budgeted        int64  `json:"budgeted"`
	NewBudgeted     int64  `json:"new_budgeted"`
	Applied         bool   `json:"applied"`
	Error           string `json:"error,omitempty"`
}
