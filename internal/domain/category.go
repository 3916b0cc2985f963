package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category is a data family tracked by the version vector.
type Category string

const (
	CategoryTransactions  Category = "transactions"
	CategoryNotifications Category = "notifications"
	CategoryDeposits      Category = "deposits"
	CategoryLoans         Category = "loans"
	CategoryAccounts      Category = "accounts"
)

// AllCategories lists the tracked categories in a stable order.
var AllCategories = []Category{
	CategoryTransactions,
	CategoryNotifications,
	CategoryDeposits,
	CategoryLoans,
	CategoryAccounts,
}

func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// QueryParam is the name under which the known version is sent, e.g. "transactionsV".
func (c Category) QueryParam() string {
	return string(c) + "V"
}

// ParseCategories parses a comma separated list, ignoring blanks.
func ParseCategories(s string) ([]Category, error) {
	var out []Category
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		c := Category(part)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, part)
		}
		out = append(out, c)
	}
	return out, nil
}

// VersionCheck is the body of GET /api/data/versions.
type VersionCheck struct {
	HasChanges bool               `json:"hasChanges"`
	Changed    map[Category]bool  `json:"changed"`
	Versions   map[Category]int64 `json:"versions"`
}

type CategorySummary struct {
	Count     int       `json:"count"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DataSummary is the body of GET /api/data/summary.
type DataSummary struct {
	Categories map[Category]CategorySummary `json:"categories"`
	ServerTime time.Time                    `json:"serverTime"`
}

// ChangeSignal is pushed over the change stream whenever categories move forward.
type ChangeSignal struct {
	Categories []Category         `json:"categories"`
	Versions   map[Category]int64 `json:"versions,omitempty"`
}
