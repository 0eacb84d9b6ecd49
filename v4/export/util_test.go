package export

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTableName(t *testing.T) {
	cases := []struct {
		in  string
		exp string
	}{
		{"FEATURE", "FEATURE"},
		{"feature_prop2", "feature_prop2"},
		{"BAD-NAME;", "BADNAME"},
		{" T1 ", "T1"},
		{"\"QUOTED\"", "QUOTED"},
		{"DROP TABLE X", "DROPTABLEX"},
		{"ÄPFEL", "PFEL"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		got := SanitizeTableName(tc.in)
		require.Equal(t, tc.exp, got, tc.in)
		require.Equal(t, got, SanitizeTableName(got), "sanitizing must be idempotent")
	}
}

func TestDefaultTableListPath(t *testing.T) {
	require.Equal(t, "cgm_ddb_tables.txt", DefaultTableListPath("CGM_DDB"))
}
