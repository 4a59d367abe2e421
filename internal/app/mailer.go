package app

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/bikeshop/config"
	"github.com/talkincode/bikeshop/internal/reporting"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// mailSend delivers a message; replaced in tests.
var mailSend = func(cfg config.MailConfig, m *gomail.Message) error {
	return gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password).DialAndSend(m)
}

// SendDailyReport mails the sales report of day with the ledger lines attached as CSV.
func (a *Application) SendDailyReport(ctx context.Context, day time.Time) error {
	cfg := a.appConfig.Mail
	if len(cfg.To) == 0 {
		return errors.New("no report recipients configured")
	}
	report, err := a.reports.DailySales(ctx, day)
	if err != nil {
		return err
	}
	if err := mailSend(cfg, buildDailyReportMessage(cfg, a.appConfig.System.Appid, report)); err != nil {
		return errors.Wrap(err, "send report mail")
	}
	zap.L().Info("daily report mailed",
		zap.String("date", report.Date),
		zap.Int("sales", report.TotalSales),
		zap.Strings("to", cfg.To))
	return nil
}

func buildDailyReportMessage(cfg config.MailConfig, appid string, report *reporting.DailyReport) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", cfg.To...)
	m.SetHeader("Subject", fmt.Sprintf("%s sales report %s", appid, report.Date))

	var body strings.Builder
	fmt.Fprintf(&body, "<h3>Sales report %s</h3>\n", html.EscapeString(report.Date))
	fmt.Fprintf(&body, "<p>Sales: %d<br>\nRevenue: %.2f</p>\n", report.TotalSales, report.TotalRevenue)
	m.SetBody("text/html", body.String())

	if len(report.Sales) > 0 {
		name := "sales-" + strings.ReplaceAll(report.Date, " ", "-") + ".csv"
		m.Attach(name, gomail.SetCopyFunc(func(w io.Writer) error {
			return reporting.WriteCSV(w, report.Sales)
		}))
	}
	return m
}
