package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/casino-research/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOffers_CSV(t *testing.T) {
	path := writeFile(t, "offers.csv", "\ufeffcasino_name,state,offer_title,bonus_amount,promo_code\n"+
		"BetMGM,NJ,Welcome Bonus,\"$1,000\",\n"+
		" , , , , \n"+
		"Caesars Palace,Pennsylvania,Deposit Match,$500,SPIN\n")

	got, err := LoadOffers(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "BetMGM", got[0].CasinoName)
	assert.Equal(t, model.StateNJ, got[0].State)
	assert.Equal(t, "$1,000", got[0].BonusAmount)
	assert.Empty(t, got[0].PromoCode)
	assert.Equal(t, HistoricalSource, got[0].Source)

	assert.Equal(t, model.StatePA, got[1].State)
	assert.Equal(t, "SPIN", got[1].PromoCode)
}

func TestLoadOffers_TSVLegacyShape(t *testing.T) {
	path := writeFile(t, "legacy.tsv", "Name\tOffer_Name\tExpected_Bonus\tExpected_Deposit\tstate\n"+
		"Borgata\tDeposit Match\t500\t250\tMI\n")

	got, err := LoadOffers(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Borgata", got[0].CasinoName)
	assert.Equal(t, "Deposit Match", got[0].OfferTitle)
	assert.Equal(t, "$500", got[0].BonusAmount)
	assert.Equal(t, "200%", got[0].MatchPercentage)
	assert.Equal(t, model.StateMI, got[0].State)
}

func TestLoadOffers_JSON(t *testing.T) {
	path := writeFile(t, "offers.json", `[
		{"casino_name": "BetMGM", "state": "NJ", "bonus_amount": 1000, "wagering_requirements": 15, "source": "Export"},
		{"Name": "Borgata", "state": {"Abbreviation": "PA"}}
	]`)

	got, err := LoadOffers(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "$1,000", got[0].BonusAmount)
	assert.Equal(t, "15x", got[0].WageringRequirements)
	assert.Equal(t, "Export", got[0].Source)
	assert.Equal(t, model.StatePA, got[1].State)
	assert.Equal(t, HistoricalSource, got[1].Source)
}

func TestLoadOffers_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Offers")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"casino_name", "state", "offer_title", "match_percentage"},
		{"DraftKings Casino", "WV", "Welcome Bonus", "100%"},
		{},
	} {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "offers.xlsx")
	require.NoError(t, f.Save(path))

	got, err := LoadOffers(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "DraftKings Casino", got[0].CasinoName)
	assert.Equal(t, model.StateWV, got[0].State)
	assert.Equal(t, "100%", got[0].MatchPercentage)

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	assert.ErrorContains(t, err, `sheet "Missing" not found`)
	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	assert.ErrorContains(t, err, "out of range")
}

func TestLoadOffers_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{name: "unsupported extension", file: "offers.txt", content: "x", wantErr: "unsupported file type"},
		{name: "empty csv", file: "offers.csv", content: "", wantErr: "csv: missing header row"},
		{name: "json object", file: "offers.json", content: `{"a": 1}`, wantErr: "json: expected '['"},
		{name: "bad json element", file: "offers.json", content: `[{"a": }]`, wantErr: "json: decode element"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadOffers(context.Background(), writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadOffers(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorContains(t, err, "csv: open file")
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collect(StreamCSV(ctx, strings.NewReader("a,b\n1,2\n"), CSVOptions{}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeJSONArray_Empty(t *testing.T) {
	got, err := collect(DecodeJSONArray[model.RawRecord](context.Background(), strings.NewReader("")))
	require.NoError(t, err)
	assert.Empty(t, got)
}
