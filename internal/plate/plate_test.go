package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "Lowercase with spaces",
			raw:      "mh 12 ab 1234",
			expected: "MH12AB1234",
		},
		{
			name:     "Already normalized",
			raw:      "MH12AB1234",
			expected: "MH12AB1234",
		},
		{
			name:     "Tabs and inner whitespace",
			raw:      "\tKA 05\tMn 2277 ",
			expected: "KA05MN2277",
		},
		{
			name:     "Empty",
			raw:      "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.raw)
			assert.Equal(t, tc.expected, got)
			// Normalization must be idempotent.
			assert.Equal(t, got, Normalize(got))
		})
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  ParsedPlate
		expectErr bool
	}{
		{
			name:     "Standard series plate",
			raw:      "MH12AB1234",
			expected: ParsedPlate{StateCode: "MH", District: 12, Series: "AB", Number: 1234},
		},
		{
			name:     "Lowercase with spaces",
			raw:      "ka 05 mn 777",
			expected: ParsedPlate{StateCode: "KA", District: 5, Series: "MN", Number: 777},
		},
		{
			name:     "No series letters",
			raw:      "DL8 4321",
			expected: ParsedPlate{StateCode: "DL", District: 8, Series: "", Number: 4321},
		},
		{
			name:      "Garbage read",
			raw:       "O0O0O0",
			expectErr: true,
		},
		{
			name:      "Empty",
			raw:       "",
			expectErr: true,
		},
		{
			name:      "Partial read",
			raw:       "MH12",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				assert.False(t, Plausible(tc.raw))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, parsed)
				assert.True(t, Plausible(tc.raw))
			}
		})
	}
}
