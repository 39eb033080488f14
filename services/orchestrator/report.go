package orchestrator

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strconv"
	"strings"

	"shopmetrics-backend/services/metricstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

// statuses in display order
var statusOrder = []string{
	metricstore.StatusEmpty,
	metricstore.StatusPartial,
	metricstore.StatusCompleted,
	metricstore.StatusFailed,
	metricstore.StatusNA,
}

// RenderStatus formats a status report as two text tables, one for the
// fleet and one for database progress.
func RenderStatus(report StatusReport) string {
	var out strings.Builder

	fleet := table.NewWriter()
	fleet.SetStyle(table.StyleRounded)
	fleet.AppendHeader(table.Row{"worker", "pid", "range", "started", "alive", "exit"})
	for _, w := range report.Workers {
		exit := ""
		if w.ReturnCode != nil {
			exit = strconv.Itoa(*w.ReturnCode)
		}
		fleet.AppendRow(table.Row{
			w.WorkerId,
			w.Pid,
			fmt.Sprintf("%d-%d", w.Range.Start, w.Range.End),
			w.StartedAt,
			w.Alive,
			exit,
		})
	}
	out.WriteString(fleet.Render())
	out.WriteString("\n")

	progress := table.NewWriter()
	progress.SetStyle(table.StyleRounded)
	progress.AppendHeader(table.Row{"status", "shops"})

	var total int64
	seen := map[string]bool{}
	for _, status := range statusOrder {
		seen[status] = true
		count := report.StatusCounts[status]
		total += count
		progress.AppendRow(table.Row{status, count})
	}
	// statuses from older schema revisions still show up
	var extra []string
	for status := range report.StatusCounts {
		if !seen[status] {
			extra = append(extra, status)
		}
	}
	sort.Strings(extra)
	for _, status := range extra {
		total += report.StatusCounts[status]
		progress.AppendRow(table.Row{status, report.StatusCounts[status]})
	}
	progress.AppendFooter(table.Row{"total", total})
	out.WriteString(progress.Render())
	out.WriteString("\n")

	return out.String()
}

type EmailConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

// SendReport mails the rendered status report to the configured
// recipients. A nil email config disables reporting.
func (o *Orchestrator) SendReport(ctx context.Context, report StatusReport) error {
	if o.cfg.Email == nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "orchestrator:SendReport")
	defer span.End()

	cfg := o.cfg.Email
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Shop Metrics <%s>", cfg.EmailAddress)
	mail.To = cfg.Recipients
	mail.Subject = "Scraping run report"
	mail.Text = []byte(RenderStatus(report))

	err := mail.Send(
		fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
		smtp.PlainAuth("", cfg.EmailAddress, cfg.Password, cfg.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(fmt.Sprintf("%s:%d", cfg.Server, cfg.Port), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
