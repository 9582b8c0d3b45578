package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{in: "  Spaghetti Bolognese\n", expect: "Spaghetti Bolognese"},
		{in: "Curry\t mit \n Reis", expect: "Curry mit Reis"},
		{in: " \n\t ", expect: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, NormalizeName(test.in))
	}
}

func TestContainsFold(t *testing.T) {
	require.True(t, ContainsFold("Tomato SOUP", "soup"))
	require.True(t, ContainsFold("vegetarisch", "vegan", "vegetarisch"))
	require.False(t, ContainsFold("Schnitzel", "vegan", "vegetarian"))
	require.False(t, ContainsFold("anything"))
}

func TestReplacePipes(t *testing.T) {
	require.Equal(t, "Pasta - Sauce", ReplacePipes("Pasta | Sauce"))
}
