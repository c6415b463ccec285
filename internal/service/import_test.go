package service

import (
	"strings"
	"testing"

	"github.com/jbaudry/previsk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorkUnitRows(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []workUnitRow
		wantErr string
	}{
		{
			name:  "header skipped",
			input: "name,description,headcount\nAtelier soudure,Poste de soudure,4\n",
			want: []workUnitRow{
				{name: "Atelier soudure", description: "Poste de soudure", headcount: 4},
			},
		},
		{
			name:  "no header",
			input: "Quai de chargement,,2\nBureau administratif\n",
			want: []workUnitRow{
				{name: "Quai de chargement", headcount: 2},
				{name: "Bureau administratif"},
			},
		},
		{
			name:  "name only rows",
			input: "Entrepôt\nLaboratoire\n",
			want: []workUnitRow{
				{name: "Entrepôt"},
				{name: "Laboratoire"},
			},
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: "no work units",
		},
		{
			name:    "header only",
			input:   "name,description\n",
			wantErr: "no work units",
		},
		{
			name:    "missing name",
			input:   "Atelier,desc\n,orphan description\n",
			wantErr: "missing work unit name at line 2",
		},
		{
			name:    "negative headcount",
			input:   "Atelier,desc,-3\n",
			wantErr: "invalid headcount at line 1",
		},
		{
			name:    "non numeric headcount",
			input:   "Atelier,desc,beaucoup\n",
			wantErr: "invalid headcount at line 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := parseWorkUnitRows(strings.NewReader(tt.input))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
				assert.Contains(t, domain.ErrorMessage(err), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestParseWorkUnitRows_RowLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i <= MaxImportRows; i++ {
		sb.WriteString("Unité ")
		sb.WriteString(strings.Repeat("x", 3))
		sb.WriteString("\n")
	}

	_, err := parseWorkUnitRows(strings.NewReader(sb.String()))
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Contains(t, domain.ErrorMessage(err), "row limit")
}
