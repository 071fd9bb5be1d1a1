package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/wonny/carwatch/pkg/httputil"
)

// WebhookNotifier posts a chat card to an incoming-webhook URL
type WebhookNotifier struct {
	url    string
	client *httputil.Client
}

// NewWebhookNotifier creates a webhook transport
func NewWebhookNotifier(url string, client *httputil.Client) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: client}
}

// Name implements Notifier
func (w *WebhookNotifier) Name() string { return "webhook" }

type webhookCard struct {
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Total    int              `json:"total"`
	Sections []webhookSection `json:"sections"`
}

type webhookSection struct {
	Header string     `json:"header"`
	Lines  []string   `json:"lines"`
	Table  [][]string `json:"table,omitempty"`
}

func buildCard(s *Summary) webhookCard {
	card := webhookCard{
		Title:    Title(s),
		Text:     RenderText(s),
		Total:    s.Total,
		Sections: make([]webhookSection, 0, len(s.Sections)),
	}
	for _, sec := range s.Sections {
		ws := webhookSection{Header: fmt.Sprintf("%s %s", sec.Vendor, sec.Market)}
		for _, rc := range sec.Counts {
			ws.Lines = append(ws.Lines, fmt.Sprintf("%s: %d", rc.Label, rc.Count))
		}
		if len(sec.PriceChanges) > 0 {
			ws.Table = append(ws.Table, PriceTableHeader)
			for _, row := range sec.PriceChanges {
				ws.Table = append(ws.Table, row.Cells())
			}
		}
		card.Sections = append(card.Sections, ws)
	}
	return card
}

// Notify implements Notifier
func (w *WebhookNotifier) Notify(ctx context.Context, s *Summary) error {
	resp, err := w.client.PostJSON(ctx, w.url, buildCard(s))
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
