package mining

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/turtacn/keggminer/internal/testutil"
)

func TestParseIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain", "C00001\nC00002\n", []string{"C00001", "C00002"}},
		{"blank lines skipped", "\nC00001\n\n   \nC00002", []string{"C00001", "C00002"}},
		{"surrounding whitespace", "  C00001  \r\n\tC00002\r\n", []string{"C00001", "C00002"}},
		{"first tab field", "C00001\tWater\tH2O\nC00002\tATP\n", []string{"C00001", "C00002"}},
		{"duplicates kept", "C00001\nC00001\n", []string{"C00001", "C00001"}},
		{"utf8 bom", "\ufeffC00001\nC00002\n", []string{"C00001", "C00002"}},
		{"fullwidth normalised", "Ｃ００００１\n", []string{"C00001"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentifiers(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, idList(tt.want...), got)
		})
	}
}

func TestParseIdentifiers_UTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.String("C00001\r\nC00022\r\n")
	require.NoError(t, err)

	got, err := ParseIdentifiers(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, idList("C00001", "C00022"), got)
}

func TestReadIdentifiers_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("C00001\nC00002\n"), 0o644))

	log := testutil.NewMockLogger()
	got := ReadIdentifiers(path, log)
	assert.Equal(t, idList("C00001", "C00002"), got)
	assert.Equal(t, 0, log.Count("error"))
}

func TestReadIdentifiers_MissingFile(t *testing.T) {
	log := testutil.NewMockLogger()
	got := ReadIdentifiers(filepath.Join(t.TempDir(), "absent.txt"), log)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.True(t, log.HasMessage("error", "input file not found"))
}

func TestReadIdentifiers_Directory(t *testing.T) {
	log := testutil.NewMockLogger()
	got := ReadIdentifiers(t.TempDir(), log)

	assert.Empty(t, got)
	assert.Equal(t, 1, log.Count("error"))
}
