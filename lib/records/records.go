// Package records defines the uniform typed output of every source: flat,
// immutable-after-yield structures whose identity is the ID field, stable
// across repeated fetches of the same underlying entity.
package records

import (
	"fmt"
	"regexp"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/shopspring/decimal"
)

type AccountType int

const (
	AccountUnknown AccountType = iota
	AccountChecking
	AccountSavings
	AccountCard
	AccountLoan
	AccountMarket
	AccountPEA
	AccountLifeInsurance
)

func (t AccountType) String() string {
	switch t {
	case AccountChecking:
		return "checking"
	case AccountSavings:
		return "savings"
	case AccountCard:
		return "card"
	case AccountLoan:
		return "loan"
	case AccountMarket:
		return "market"
	case AccountPEA:
		return "pea"
	case AccountLifeInsurance:
		return "life_insurance"
	default:
		return "unknown"
	}
}

type Account struct {
	ID       string
	Label    string
	Balance  decimal.Decimal
	Currency string
	Type     AccountType
	// ValuationDiff and ValuationDiffRatio are only carried by portfolio
	// accounts; the ratio is a fraction, not a percentage.
	ValuationDiff      decimal.NullDecimal
	ValuationDiffRatio decimal.NullDecimal
	// URL points at the source page holding the account's detail, when
	// navigation needs it later in the session.
	URL string
}

type Transaction struct {
	Date   time.Time
	Label  string
	Amount decimal.Decimal
}

type CodeType string

const (
	CodeTypeNone CodeType = ""
	CodeTypeISIN CodeType = "ISIN"
)

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// IsISIN reports whether a security code has the ISIN shape.
func IsISIN(code string) bool {
	return isinPattern.MatchString(code)
}

// CodeTypeFor classifies a security code, XX- prefixed synthetic codes
// included (used for liquidity lines).
func CodeTypeFor(code string) CodeType {
	if IsISIN(code) || regexp.MustCompile(`^XX-`).MatchString(code) {
		return CodeTypeISIN
	}
	return CodeTypeNone
}

type Investment struct {
	Label          string
	Code           string
	CodeType       CodeType
	Quantity       decimal.NullDecimal
	UnitPrice      decimal.NullDecimal
	UnitValue      decimal.NullDecimal
	Valuation      decimal.Decimal
	Diff           decimal.NullDecimal
	DiffRatio      decimal.NullDecimal
	PortfolioShare decimal.NullDecimal
}

// NewLiquidity builds the synthetic investment line representing the cash
// held on a market account.
func NewLiquidity(valuation decimal.Decimal) Investment {
	return Investment{
		Label:     "Liquidités",
		Code:      "XX-Liquidity",
		CodeType:  CodeTypeISIN,
		Valuation: valuation,
	}
}

type Subscription struct {
	ID        string
	Label     string
	RenewDate time.Time
}

type Bill struct {
	ID             string
	SubscriptionID string
	Date           time.Time
	Price          decimal.Decimal
	Currency       string
	// URL is the document download location on the source.
	URL string
}

// FindAccount resolves an account by exact id. On a miss the error names the
// closest existing id by edit distance, which makes credential/config typos
// obvious in the caller's output.
func FindAccount(accounts []Account, id string) (Account, error) {
	closest := ""
	best := -1
	for _, account := range accounts {
		if account.ID == id {
			return account, nil
		}
		distance := matchr.Levenshtein(account.ID, id)
		if best == -1 || distance < best {
			best = distance
			closest = account.ID
		}
	}
	if closest == "" {
		return Account{}, fmt.Errorf("account %q not found", id)
	}
	return Account{}, fmt.Errorf("account %q not found (closest: %q)", id, closest)
}
