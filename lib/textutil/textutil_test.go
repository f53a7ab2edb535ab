package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	for input, want := range map[string]string{
		"P.E.A. Monsieur X":   "peamonsieurx",
		"COMPTE TITRES M X":   "comptetitresmx",
		"Compte-Titres":       "comptetitres",
		"Livret d'épargne":    "livretdepargne",
		"Trésorerie\ncourante": "tresoreriecourante",
	} {
		require.Equal(t, want, NormalizeName(input))
	}
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("P.E.A. PME Monsieur X", []string{"pea"}))
	require.True(t, MatchName("COMPTE TITRES M X", []string{"comptetitre"}))
	require.True(t, MatchName("Plan Épargne", []string{"livret", "epargne"}))
	require.False(t, MatchName("Compte courant", []string{"pea", "comptetitre"}))
}
