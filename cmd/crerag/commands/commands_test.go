package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingsCSV = `unique_id,Property Address,Floor,Suite,Size (SF),Rent/SF/Year,Associate 1,BROKER Email ID,Associate 2,Associate 3,Associate 4,Annual Rent,Monthly Rent,GCI On 3 Years
1,36 W 36th St,E3,300,"20,000",$87.00,Hector Barbossa,hector@example.com,Jack Sparrow,Elizabeth Swann,Will Turner,"$1,740,000.00","$145,000.00","$292,059.00"
2,15 W 38th St,P2,210,5000,$95.00,Davy Jones,davy@example.com,Tia Dalma,Joshamee Gibbs,James Norrington,"$475,000.00","$39,583.33","$79,762.00"
`

// writeConfig creates a config rooted in a temp dir and returns its path.
func writeConfig(t *testing.T, backend string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "listings.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(listingsCSV), 0o644))
	cfg := fmt.Sprintf(`knowledge_base:
  backend: %s
  data_dir: %s
chunker:
  type: line
listings:
  csv_path: %s
log:
  level: error
`, backend, filepath.Join(dir, "data"), csvPath)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "ingest", "add", "query", "docs", "stats", "analyze", "portfolio", "chat", "tui", "mcp", "watch", "version"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("json"))
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-10-01")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "crerag 1.2.3")
	assert.Contains(t, out, "Commit: abc123")
}

func TestAddQueryDocsFlow(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg, _ := writeConfig(t, backend)

			out, err := run(t, "--config", cfg, "add", "--source", "notes.txt",
				"Suite 300 offers 20,000 SF at $87 per year.",
				"Suite 210 offers 5,000 SF at $95 per year.")
			require.NoError(t, err)
			assert.Contains(t, out, "as document #1 (notes.txt)")

			// A fresh process sees the persisted state.
			out, err = run(t, "--config", cfg, "--json", "query", "Properties above 15,000 SF")
			require.NoError(t, err)
			var res struct {
				Results []struct {
					Text  string  `json:"text"`
					Score float64 `json:"score"`
				} `json:"results"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			require.Len(t, res.Results, 1)
			assert.Contains(t, res.Results[0].Text, "Suite 300")

			out, err = run(t, "--config", cfg, "docs", "list")
			require.NoError(t, err)
			assert.Contains(t, out, "notes.txt")
			assert.Contains(t, out, "[0, 2)")

			_, err = run(t, "--config", cfg, "docs", "delete", "7")
			assert.Error(t, err)

			out, err = run(t, "--config", cfg, "docs", "delete", "1")
			require.NoError(t, err)
			assert.Contains(t, out, "Document 1 deleted")

			out, err = run(t, "--config", cfg, "stats")
			require.NoError(t, err)
			assert.Contains(t, out, "Chunks:      0")
		})
	}
}

func TestIngestCmd(t *testing.T) {
	cfg, dir := writeConfig(t, "file")
	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte("Lobby renovated\nBike storage on P1"), 0o644))
	image := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(image, []byte{0x89}, 0o644))

	out, err := run(t, "--config", cfg, "ingest", notes, filepath.Join(dir, "listings.csv"), image)
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 2 file(s), added 4 chunk(s)")
	assert.Contains(t, out, "photo.png")

	out, err = run(t, "--config", cfg, "--json", "query", "rent below $90 per SF")
	require.NoError(t, err)
	assert.Contains(t, out, "Suite 300")
	assert.NotContains(t, out, "Suite 210")
}

func TestIngestCmd_NothingExtracted(t *testing.T) {
	cfg, dir := writeConfig(t, "file")
	image := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(image, []byte{0x89}, 0o644))

	_, err := run(t, "--config", cfg, "ingest", image)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid text")
}

func TestAnalyzeCmd(t *testing.T) {
	cfg, _ := writeConfig(t, "file")
	t.Setenv("OPENAI_API_KEY", "")
	out, err := run(t, "--config", cfg, "analyze", "over 10,000 SF")
	require.NoError(t, err)
	assert.Contains(t, out, "size greater than 10000 SF")
	assert.Contains(t, out, "36 W 36th St")
	assert.Contains(t, out, "292059")
	assert.NotContains(t, out, "15 W 38th St")
}

func TestPortfolioCmd(t *testing.T) {
	cfg, _ := writeConfig(t, "file")
	t.Setenv("OPENAI_API_KEY", "")
	out, err := run(t, "--config", cfg, "portfolio")
	require.NoError(t, err)
	assert.Contains(t, out, "Properties:   2")
	assert.Contains(t, out, "Average size: 12500 SF (5000 to 20000)")
	assert.Contains(t, out, "Average rent: $91.00/SF/year ($87.00 to $95.00)")
}

func TestDocsClear_RequiresConfirmation(t *testing.T) {
	cfg, _ := writeConfig(t, "file")
	_, err := run(t, "--config", cfg, "docs", "clear")
	require.Error(t, err)

	_, err = run(t, "--config", cfg, "add", "office tower")
	require.NoError(t, err)
	out, err := run(t, "--config", cfg, "docs", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Knowledge base cleared")
}

func TestChatCmd_WithoutAPIKey(t *testing.T) {
	cfg, _ := writeConfig(t, "file")
	t.Setenv("OPENAI_API_KEY", "")
	out, err := run(t, "--config", cfg, "chat", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Error: no language model configured")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n b\t c", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
