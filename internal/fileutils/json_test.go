package fileutils_test

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/sinch/sinch-quickstart/internal/fileutils"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input   string
		readErr bool

		want    map[string]any
		wantErr bool
	}{
		"Empty object":  {input: `{}`, want: map[string]any{}},
		"Nested object": {input: `{"s":"im","c":{"k":"key"}}`, want: map[string]any{"s": "im", "c": map[string]any{"k": "key"}}},

		// Error cases
		"Empty input":          {input: ``, wantErr: true},
		"Junk data":            {input: `some junk data`, wantErr: true},
		"Trailing junk data":   {input: `{"s":"im"} junk`, wantErr: true},
		"Not an object":        {input: `["im"]`, wantErr: true},
		"Reader returns error": {readErr: true, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var r = iotest.ErrReader(errors.New("read error"))
			if !tc.readErr {
				r = strings.NewReader(tc.input)
			}

			var got map[string]any
			err := fileutils.ParseJSON(r, &got)
			if tc.wantErr {
				require.Error(t, err, "expected error but got none")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got, "ParseJSON should decode the object")
		})
	}
}
