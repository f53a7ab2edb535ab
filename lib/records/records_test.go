package records

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFindAccount(t *testing.T) {
	accounts := []Account{
		{ID: "89382700123", Label: "Compte titres"},
		{ID: "11111100456", Label: "PEA"},
	}

	found, err := FindAccount(accounts, "11111100456")
	require.NoError(t, err)
	require.Equal(t, "PEA", found.Label)

	_, err = FindAccount(accounts, "89382700124")
	require.Error(t, err)
	require.Contains(t, err.Error(), `closest: "89382700123"`)

	_, err = FindAccount(nil, "anything")
	require.Error(t, err)
}

func TestIsISIN(t *testing.T) {
	require.True(t, IsISIN("FR0010315770"))
	require.True(t, IsISIN("US0378331005"))
	require.False(t, IsISIN("FR001031577"))
	require.False(t, IsISIN("123456789012"))
}

func TestCodeTypeFor(t *testing.T) {
	require.Equal(t, CodeTypeISIN, CodeTypeFor("FR0010315770"))
	require.Equal(t, CodeTypeISIN, CodeTypeFor("XX-Liquidity"))
	require.Equal(t, CodeTypeNone, CodeTypeFor("ACME"))
}

func TestNewLiquidity(t *testing.T) {
	line := NewLiquidity(decimal.NewFromInt(1000))
	require.Equal(t, "Liquidités", line.Label)
	require.Equal(t, "XX-Liquidity", line.Code)
	require.Equal(t, CodeTypeISIN, line.CodeType)
	require.Equal(t, "1000", line.Valuation.String())
}

func TestMergeByIDPrefix(t *testing.T) {
	accounts := []Account{
		{ID: "89382700123", Label: "COMPTE TITRES M X", Type: AccountChecking},
		{ID: "11111100456", Label: "PEA M X", Type: AccountPEA,
			Balance: decimal.NewFromInt(7)},
	}
	extra := []Account{
		{ID: "893827.1", Label: "Compte titres", Type: AccountMarket,
			Balance: decimal.RequireFromString("5000"), Currency: "EUR",
			ValuationDiff: decimal.NewNullDecimal(decimal.RequireFromString("120.5")),
			URL:           "invest?id=1"},
		{ID: "111111.1", Label: "PEA", Type: AccountPEA,
			Balance: decimal.RequireFromString("9000"), Currency: "EUR"},
		{ID: "222222.1", Label: "Compte espèces", Type: AccountMarket,
			Balance: decimal.RequireFromString("10"), Currency: "EUR"},
	}

	merged := MergeByIDPrefix(accounts, extra)
	require.Len(t, merged, 4)

	// zero-balance primary account takes the secondary entry's fields,
	// type included, but its own id and label win
	require.Equal(t, "89382700123", merged[0].ID)
	require.Equal(t, "COMPTE TITRES M X", merged[0].Label)
	require.Equal(t, AccountMarket, merged[0].Type)
	require.Equal(t, "5000", merged[0].Balance.String())
	require.Equal(t, "EUR", merged[0].Currency)
	require.Equal(t, "120.5", merged[0].ValuationDiff.Decimal.String())
	require.Equal(t, "invest?id=1", merged[0].URL)

	// non-zero primary account is left untouched and its entry appended
	require.Equal(t, "7", merged[1].Balance.String())
	require.Equal(t, AccountPEA, merged[1].Type)
	require.Empty(t, merged[1].Currency)
	require.Equal(t, "111111.1", merged[2].ID)

	// secondary entry matching nothing is appended as its own account
	require.Equal(t, "222222.1", merged[3].ID)
	require.Equal(t, "10", merged[3].Balance.String())
}
