// Package export renders research results as spreadsheets and Notion pages.
package export

import (
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/casino-research/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetComparisons = "Comparisons"
	SheetNewOffers   = "New Offers"
	SheetMissing     = "Missing Casinos"
)

var (
	comparisonHeader = []string{"Casino", "State", "Current Offer", "Discovered Offer", "Better", "New", "Notes", "Confidence", "Website"}
	newOfferHeader   = []string{"Casino", "State", "Title", "Bonus", "Match", "Wagering", "Promo Code", "Terms URL", "Source"}
	missingHeader    = []string{"Casino", "State", "Brand", "License", "Website", "Operational", "Source"}
)

// BuildWorkbook lays out res as a four-sheet workbook.
func BuildWorkbook(res *model.ResearchResult) (*xlsx.File, error) {
	if res == nil {
		return nil, eris.New("xlsx: nil result")
	}
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add summary sheet")
	}
	addPairs(summary, [][2]string{
		{"Run ID", res.RunID},
		{"Timestamp", res.Timestamp.UTC().Format(time.RFC3339)},
		{"States", joinStates(res.States)},
		{"Missing Casinos", strconv.Itoa(res.MissingCasinoCount())},
		{"Comparisons", strconv.Itoa(len(res.OfferComparisons))},
		{"Better Offers", strconv.Itoa(res.BetterOfferCount())},
		{"New Offers", strconv.Itoa(len(res.NewOffers))},
		{"API Calls", strconv.Itoa(res.APICallsMade)},
		{"Execution Time (ms)", strconv.FormatInt(res.ExecutionTimeMS, 10)},
	})
	for _, l := range res.Limitations {
		addRow(summary, "Limitation", l)
	}

	comparisons, err := f.AddSheet(SheetComparisons)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add comparisons sheet")
	}
	addRow(comparisons, comparisonHeader...)
	for _, c := range res.OfferComparisons {
		current := ""
		if c.CurrentOffer != nil {
			current = *c.CurrentOffer
		}
		row := comparisons.AddRow()
		row.AddCell().SetString(c.Casino)
		row.AddCell().SetString(string(c.State))
		row.AddCell().SetString(current)
		row.AddCell().SetString(c.DiscoveredOffer)
		row.AddCell().SetBool(c.IsBetter)
		row.AddCell().SetBool(c.IsNew)
		row.AddCell().SetString(c.DifferenceNotes)
		row.AddCell().SetInt(c.ConfidenceScore)
		row.AddCell().SetString(c.DiscoveredCasinoWebsite)
	}

	offers, err := f.AddSheet(SheetNewOffers)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add new offers sheet")
	}
	addRow(offers, newOfferHeader...)
	for _, o := range res.NewOffers {
		addRow(offers, o.CasinoName, string(o.State), o.OfferTitle, o.BonusAmount,
			o.MatchPercentage, o.WageringRequirements, o.PromoCode, o.TermsURL, o.Source)
	}

	missing, err := f.AddSheet(SheetMissing)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add missing casinos sheet")
	}
	addRow(missing, missingHeader...)
	for _, s := range model.AllStates {
		for _, c := range res.MissingCasinos[s] {
			row := missing.AddRow()
			for _, v := range []string{c.Name, string(c.State), c.Brand, c.LicenseNumber, c.Website} {
				row.AddCell().SetString(v)
			}
			row.AddCell().SetBool(c.IsOperational)
			row.AddCell().SetString(c.Source)
		}
	}

	return f, nil
}

// WriteXLSX streams the workbook for res to w.
func WriteXLSX(w io.Writer, res *model.ResearchResult) error {
	f, err := BuildWorkbook(res)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

// SaveXLSX writes the workbook for res to path.
func SaveXLSX(path string, res *model.ResearchResult) error {
	f, err := BuildWorkbook(res)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addPairs(sheet *xlsx.Sheet, pairs [][2]string) {
	for _, p := range pairs {
		addRow(sheet, p[0], p[1])
	}
}

func joinStates(states []model.State) string {
	s := ""
	for i, st := range states {
		if i > 0 {
			s += ", "
		}
		s += string(st)
	}
	return s
}
