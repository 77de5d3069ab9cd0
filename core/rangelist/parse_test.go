package rangelist

import (
	"testing"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected List
		render   string
	}{
		{name: "single revision", text: "7", expected: List{r(6, 7)}, render: "7"},
		{name: "span", text: "6-10", expected: List{r(5, 10)}, render: "6-10"},
		{name: "non-inheritable", text: "12*", expected: List{nr(11, 12)}, render: "12*"},
		{
			name:     "mixed list",
			text:     "6-10,12*,15-20",
			expected: List{r(5, 10), nr(11, 12), r(14, 20)},
			render:   "6-10,12*,15-20",
		},
		{
			name:     "unsorted and overlapping input is coalesced",
			text:     "15-20,3-5,4-8,9",
			expected: List{r(2, 9), r(14, 20)},
			render:   "3-9,15-20",
		},
		{name: "surrounding whitespace", text: "  1-2 ", expected: List{r(0, 2)}, render: "1-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.render, got.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		msg  string
	}{
		{name: "empty", text: "", msg: "Empty revision range list"},
		{name: "letters", text: "5-x", msg: "Invalid character 'x' found in revision list"},
		{name: "reversed", text: "10-6", msg: "Unable to parse reversed revision range '10-6'"},
		{name: "same start and end", text: "4-4", msg: "Unable to parse revision range '4-4' with same start and end revisions"},
		{name: "zero", text: "0", msg: "Invalid revision number '0' found in range list"},
		{
			name: "overlap with different inheritance",
			text: "1-10,5*",
			msg:  "Unable to parse overlapping revision ranges '1-10' and '5*' with different inheritance types",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.EqualError(t, err, tt.msg)
			assert.ErrorIs(t, err, contract.ErrValidation)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, text := range []string{"1", "1-3,5*,8-12", "2*,4-9*,11"} {
		l := MustParse(text)
		again, err := Parse(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, again)
	}
}
