package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplanning/lead-scout/internal/fetcher"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := fetcher.DecodeJSON(stringsReader(s))
	require.NoError(t, err)
	return v
}

func TestRecords_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		keys []string
		want []string
	}{
		{"data key", `{"data":[{"reference":"a"}]}`, nil, []string{"a"}},
		{"records key", `{"records":[{"reference":"b"}]}`, nil, []string{"b"}},
		{"results with fields", `{"results":[{"fields":{"reference":"c"}},{"reference":"d"}]}`, nil, []string{"c", "d"}},
		{"top-level array", `[{"reference":"e"}]`, nil, []string{"e"}},
		{"dotted path", `{"success":true,"result":{"records":[{"reference":"f"}]}}`, []string{"result.records"}, []string{"f"}},
		{"first key wins", `{"data":[{"reference":"g"}],"results":[{"reference":"h"}]}`, nil, []string{"g"}},
		{"skips non-objects", `{"data":[1,"x",{"reference":"i"}]}`, nil, []string{"i"}},
		{"empty list", `{"results":[]}`, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Records(decode(t, tt.body), tt.keys...)
			require.NoError(t, err)
			got := make([]string, 0, len(recs))
			for _, r := range recs {
				got = append(got, r.First("reference"))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecords_Errors(t *testing.T) {
	_, err := Records(decode(t, `{"message":"quota exceeded"}`))
	assert.Error(t, err)

	_, err = Records(decode(t, `"just a string"`))
	assert.Error(t, err)

	_, err = Records(decode(t, `{"result":{"records":{}}}`), "result.records")
	assert.Error(t, err)
}
