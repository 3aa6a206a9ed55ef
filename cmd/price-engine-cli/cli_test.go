package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seunghun2/daedaesonson/internal/observability"
)

func TestFormatWon(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0원"},
		{999, "999원"},
		{1000, "1,000원"},
		{570000, "570,000원"},
		{3000000, "3,000,000원"},
		{-1500, "-1,500원"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatWon(tt.in))
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.0m", FormatDuration(2*time.Minute))
}

func TestUI_TableAlignsHangul(t *testing.T) {
	var buf bytes.Buffer
	u := &UI{out: &buf, noColor: true}

	u.Table([]string{"Name", "Price"}, [][]string{
		{"매장묘", "3,000,000원"},
		{"ab", "1원"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[3], "매장묘")
	// "매장묘" is six cells wide, so "ab" is padded by four spaces.
	assert.Contains(t, lines[4], "│ ab     │")
}

func TestUI_JSONModeIsSilent(t *testing.T) {
	var buf bytes.Buffer
	u := &UI{out: &buf, jsonMode: true}

	u.Success("done")
	u.Section("x")
	u.Table([]string{"a"}, [][]string{{"b"}})
	assert.Empty(t, buf.String())
	assert.Nil(t, u.NewBatchProgress(3))
	assert.Nil(t, u.ProgressBar(3, "x"))

	var bp *BatchProgress
	bp.Record(true)
	bp.Wait()
}

func TestFacilityRequestsFromDir(t *testing.T) {
	logger = observability.NopLogger()
	dir := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("F001/b.txt", "개인단 1,500,000원")
	write("F001/a.txt", "묘지사용료 3,000,000원")
	write("F001/structured.json", `{"items":[{"name":"매장묘","price":4000000}]}`)
	write("F001/notes.docx", "ignored")
	write("F002/prices.txt", "봉안당 500,000원")
	write("README.txt", "not a facility")

	reqs, err := facilityRequestsFromDir(dir)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "F001", reqs[0].FacilityID)
	require.Len(t, reqs[0].Documents, 2)
	assert.Equal(t, "a.txt", reqs[0].Documents[0].ID())
	require.Len(t, reqs[0].Structured, 1)
	assert.Equal(t, int64(4000000), reqs[0].Structured[0].Price)

	assert.Equal(t, "F002", reqs[1].FacilityID)
	assert.Len(t, reqs[1].Documents, 1)
	assert.Nil(t, reqs[1].Structured)
}
