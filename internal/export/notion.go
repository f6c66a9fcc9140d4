package export

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/recon"
	"github.com/sells-group/casino-research/pkg/notion"
)

// Notion database property names.
const (
	PropName       = "Name"
	PropKey        = "Key"
	PropState      = "State"
	PropStatus     = "Status"
	PropCurrent    = "Current Offer"
	PropDiscovered = "Discovered Offer"
	PropNotes      = "Notes"
	PropConfidence = "Confidence"
	PropWebsite    = "Website"
	PropRunID      = "Run ID"
	PropLastSeen   = "Last Seen"

	StatusBetter = "Better Offer"
	StatusNew    = "New Offer"
)

// NotionReport counts the pages touched by one export.
type NotionReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// NotionExporter publishes actionable comparisons to a Notion database.
type NotionExporter struct {
	client notion.Client
	dbID   string
}

// NewNotionExporter creates an exporter writing to database dbID.
func NewNotionExporter(client notion.Client, dbID string) *NotionExporter {
	return &NotionExporter{client: client, dbID: dbID}
}

// ExportComparisons upserts one page per better or new comparison, keyed by
// the canonical casino key. Other comparisons are skipped. On error the
// report reflects the pages written so far.
func (e *NotionExporter) ExportComparisons(ctx context.Context, res *model.ResearchResult) (NotionReport, error) {
	var rep NotionReport
	if res == nil {
		return rep, eris.New("notion export: nil result")
	}

	for _, c := range res.OfferComparisons {
		if !c.IsBetter && !c.IsNew {
			rep.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, eris.Wrap(err, "notion export: cancelled")
		}

		key := recon.CasinoKey(c.Casino, c.State)
		props := comparisonProperties(c, key, res)

		existing, err := notion.FindByText(ctx, e.client, e.dbID, PropKey, key)
		if err != nil {
			return rep, eris.Wrapf(err, "notion export: lookup %s", key)
		}
		if existing != nil {
			if _, err := e.client.UpdatePage(ctx, string(existing.ID), &notionapi.PageUpdateRequest{Properties: props}); err != nil {
				return rep, eris.Wrapf(err, "notion export: update %s", key)
			}
			rep.Updated++
			continue
		}

		_, err = e.client.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(e.dbID),
			},
			Properties: props,
		})
		if err != nil {
			return rep, eris.Wrapf(err, "notion export: create %s", key)
		}
		rep.Created++
	}

	zap.L().Info("exported comparisons to notion",
		zap.String("run_id", res.RunID),
		zap.Int("created", rep.Created),
		zap.Int("updated", rep.Updated),
		zap.Int("skipped", rep.Skipped),
	)
	return rep, nil
}

func comparisonProperties(c model.OfferComparison, key string, res *model.ResearchResult) notionapi.Properties {
	status := StatusBetter
	if c.IsNew {
		status = StatusNew
	}
	current := ""
	if c.CurrentOffer != nil {
		current = *c.CurrentOffer
	}

	props := notionapi.Properties{
		PropName:       notion.Title(c.Casino),
		PropKey:        notion.Text(key),
		PropState:      notion.Select(string(c.State)),
		PropStatus:     notion.Select(status),
		PropCurrent:    notion.Text(current),
		PropDiscovered: notion.Text(c.DiscoveredOffer),
		PropNotes:      notion.Text(c.DifferenceNotes),
		PropConfidence: notion.Number(float64(c.ConfidenceScore)),
		PropRunID:      notion.Text(res.RunID),
		PropLastSeen:   notion.Date(res.Timestamp),
	}
	// Notion rejects empty URL values.
	if c.DiscoveredCasinoWebsite != "" {
		props[PropWebsite] = notion.URL(c.DiscoveredCasinoWebsite)
	}
	return props
}
