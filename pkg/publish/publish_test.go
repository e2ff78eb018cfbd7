package publish

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/signalradar/pkg/source"
	"github.com/elonfeng/signalradar/pkg/trend"
)

func testSignals() []trend.Signal {
	return []trend.Signal{
		{
			Item:           source.Item{Title: "Magnesium, creatine and \"sleep\"", Link: "https://a/1", Category: "wellness"},
			PublishedISO:   "2025-06-15T08:00:00Z",
			PrimaryKeyword: "magnesium",
			HitCount:       2,
			TrendScore:     2,
			Tier:           trend.TierMainstream,
		},
		{
			Item:           source.Item{Title: "Lip oil returns", Link: "https://b/3", Category: "beauty"},
			PrimaryKeyword: "lip oil",
			TrendScore:     1.28,
			Tier:           trend.TierBubbling,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSignals()))

	want := "published,title,link,category,primary_keyword,trend_score,status\n" +
		"2025-06-15T08:00:00Z,\"Magnesium, creatine and \"\"sleep\"\"\",https://a/1,wellness,magnesium,2.0,mainstream\n" +
		",Lip oil returns,https://b/3,beauty,lip oil,1.28,bubbling\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestFormatScore(t *testing.T) {
	tbl := map[float64]string{0: "0.0", 2: "2.0", 0.3: "0.3", 1.28: "1.28", 12.5: "12.5"}
	for in, want := range tbl {
		assert.Equal(t, want, FormatScore(in), "score %v", in)
	}
}

func TestReadCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSignals()))

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Magnesium, creatine and \"sleep\"", rows[0]["title"])
	assert.Equal(t, "", rows[1]["published"])
	assert.Equal(t, "bubbling", rows[1]["status"])
}

func TestReadCSV_BadHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b,c,d,e,f,g\n"))
	require.Error(t, err)

	_, err = ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestPublisher_Publish(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "docs", "nested", "signals_simple.csv")
	siteDir := filepath.Join(dir, "site")

	p := NewPublisher(csvPath, siteDir, "signals_simple.csv")
	assert.Equal(t, []string{csvPath, filepath.Join(siteDir, "signals_simple.csv")}, p.Paths())
	require.NoError(t, p.Publish(testSignals()))

	first, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(siteDir, "signals_simple.csv"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, string(first), "lip oil")

	// republishing replaces the previous artifact
	require.NoError(t, p.Publish(nil))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Columns, ",")+"\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(csvPath))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestPublisher_NoSiteDir(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "out.csv")
	p := NewPublisher(csvPath, "", "ignored.csv")
	assert.Equal(t, []string{csvPath}, p.Paths())
	require.NoError(t, p.Publish(testSignals()))
	_, err := os.Stat(csvPath)
	require.NoError(t, err)
}
