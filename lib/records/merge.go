package records

import "strings"

// MergeByIDPrefix folds a secondary listing (e.g. a portfolio synthesis
// page) into accounts already fetched from the primary listing. A primary
// account whose id begins with the secondary entry's bare id and whose
// balance is still zero takes the entry's balance, currency, valuation
// figures, type and url; only its own id and label win. Entries matching
// nothing are appended as accounts of their own.
//
// The merge key is deliberately a string-prefix match, not an exact one:
// the two listings render the same account with different id decorations
// and this is the behavior the sources have always required.
func MergeByIDPrefix(accounts []Account, extra []Account) []Account {
	for _, entry := range extra {
		bare := strings.TrimSuffix(entry.ID, ".1")
		merged := false
		for i := range accounts {
			if !strings.HasPrefix(accounts[i].ID, bare) || !accounts[i].Balance.IsZero() {
				continue
			}
			accounts[i].Balance = entry.Balance
			accounts[i].Currency = entry.Currency
			accounts[i].ValuationDiff = entry.ValuationDiff
			accounts[i].ValuationDiffRatio = entry.ValuationDiffRatio
			accounts[i].Type = entry.Type
			accounts[i].URL = entry.URL
			merged = true
			break
		}
		if !merged {
			accounts = append(accounts, entry)
		}
	}
	return accounts
}
