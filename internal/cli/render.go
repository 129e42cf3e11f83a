// Package cli renders lifecycle data for the negctl admin tool.
package cli

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/negotiation-hub/negotiation-hub/internal/application/lifecycle"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

// NegotiationScope labels entries that belong to the negotiation itself.
const NegotiationScope = "negotiation"

// RuleRow is one transition in printable form.
type RuleRow struct {
	Scope string   `json:"scope"`
	From  string   `json:"from"`
	Event string   `json:"event"`
	Roles []string `json:"roles"`
	To    string   `json:"to"`
}

// RulesReport is the output of the rules command.
type RulesReport struct {
	Rules  []RuleRow        `json:"rules"`
	Policy lifecycle.Policy `json:"policy"`
}

// HistoryRow is one ledger entry in printable form.
type HistoryRow struct {
	Sequence   int64     `json:"sequence"`
	Scope      string    `json:"scope"`
	State      string    `json:"state"`
	RecordedAt time.Time `json:"recordedAt"`
}

// ResourceRow is the latest state of one resource.
type ResourceRow struct {
	ResourceID string    `json:"resourceId"`
	State      string    `json:"state"`
	Sequence   int64     `json:"sequence"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BuildRulesReport flattens both rule tables, negotiation rules first.
func BuildRulesReport(neg *negotiation.NegotiationRules, res *negotiation.ResourceRules, policy lifecycle.Policy) RulesReport {
	report := RulesReport{Rules: []RuleRow{}, Policy: policy}
	for _, r := range neg.Rules() {
		report.Rules = append(report.Rules, RuleRow{
			Scope: neg.Scope(),
			From:  string(r.From),
			Event: string(r.Event),
			Roles: roleNames(r.Roles),
			To:    string(r.To),
		})
	}
	for _, r := range res.Rules() {
		report.Rules = append(report.Rules, RuleRow{
			Scope: res.Scope(),
			From:  string(r.From),
			Event: string(r.Event),
			Roles: roleNames(r.Roles),
			To:    string(r.To),
		})
	}
	return report
}

// BuildHistory keeps ledger order.
func BuildHistory(entries []*negotiation.LedgerEntry) []HistoryRow {
	rows := make([]HistoryRow, 0, len(entries))
	for _, e := range entries {
		scope := NegotiationScope
		if e.IsResourceScoped() {
			scope = *e.ResourceID
		}
		rows = append(rows, HistoryRow{
			Sequence:   e.Sequence,
			Scope:      scope,
			State:      e.ToState,
			RecordedAt: e.RecordedAt.UTC(),
		})
	}
	return rows
}

// BuildResources sorts the latest entries by resource ID.
func BuildResources(latest map[string]*negotiation.LedgerEntry) []ResourceRow {
	rows := make([]ResourceRow, 0, len(latest))
	for id, e := range latest {
		rows = append(rows, ResourceRow{
			ResourceID: id,
			State:      e.ToState,
			Sequence:   e.Sequence,
			UpdatedAt:  e.RecordedAt.UTC(),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ResourceID < rows[j].ResourceID })
	return rows
}

// RenderRules prints the rules table followed by the active policy.
func RenderRules(w io.Writer, report RulesReport, asJSON bool) error {
	if asJSON {
		return printJSON(w, report)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Scope", "From", "Event", "Roles", "To"})
	for _, r := range report.Rules {
		tw.AppendRow(table.Row{r.Scope, r.From, r.Event, strings.Join(r.Roles, ","), r.To})
	}
	tw.Render()

	pw := table.NewWriter()
	pw.SetOutputMirror(w)
	pw.AppendHeader(table.Row{"Setting", "Value"})
	pw.AppendRow(table.Row{"seedOn", joinStates(report.Policy.SeedOn)})
	pw.AppendRow(table.Row{"resourceActiveStates", joinStates(report.Policy.ResourceActiveStates)})
	pw.AppendRow(table.Row{"maxConflictRetries", strconv.Itoa(report.Policy.MaxConflictRetries)})
	events := make([]string, 0, len(report.Policy.Guards))
	for e := range report.Policy.Guards {
		events = append(events, string(e))
	}
	sort.Strings(events)
	for _, e := range events {
		pw.AppendRow(table.Row{"guard " + e, report.Policy.Guards[negotiation.Event(e)]})
	}
	pw.Render()
	return nil
}

// RenderHistory prints ledger entries in sequence order.
func RenderHistory(w io.Writer, rows []HistoryRow, asJSON bool) error {
	if asJSON {
		return printJSON(w, rows)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Seq", "Scope", "State", "Recorded"})
	for _, r := range rows {
		tw.AppendRow(table.Row{strconv.FormatInt(r.Sequence, 10), r.Scope, r.State, r.RecordedAt.Format(time.RFC3339)})
	}
	tw.Render()
	return nil
}

// RenderResources prints the latest state of every resource.
func RenderResources(w io.Writer, rows []ResourceRow, asJSON bool) error {
	if asJSON {
		return printJSON(w, rows)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Resource", "State", "Seq", "Updated"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.ResourceID, r.State, strconv.FormatInt(r.Sequence, 10), r.UpdatedAt.Format(time.RFC3339)})
	}
	tw.Render()
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func roleNames(roles []user.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

func joinStates(states []negotiation.State) string {
	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}
