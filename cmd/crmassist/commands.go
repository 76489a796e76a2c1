package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Zacy-Sokach/crmassist/internal/api"
	"github.com/Zacy-Sokach/crmassist/internal/chat"
	"github.com/Zacy-Sokach/crmassist/internal/config"
	"github.com/Zacy-Sokach/crmassist/internal/crm"
	"github.com/Zacy-Sokach/crmassist/internal/logging"
	"github.com/Zacy-Sokach/crmassist/internal/mockapi"
	"github.com/Zacy-Sokach/crmassist/internal/tui"
	"github.com/Zacy-Sokach/crmassist/internal/utils"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	traceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...)
}

func askCmd() *cobra.Command {
	var noTrace bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the assistant a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := cliLogger()
			conv := chat.New(chat.NewAPITransport(newClient(cfg, logger)), chat.WithLogger(logger))

			turn, ok := conv.Begin(strings.Join(args, " "))
			if !ok {
				return chat.ErrEmptyMessage
			}
			res, runErr := turn.Run(cmd.Context())
			conv.Complete(turn, res, runErr)
			// 失败时由 main 统一输出错误
			if runErr != nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			state := conv.Snapshot()
			if trace := chat.PresentTrace(state); trace.Attached && !noTrace {
				printTrace(out, trace)
			}
			last := state.Transcript[len(state.Transcript)-1]
			fmt.Fprintln(out, tui.GetMarkdownRenderer().Render(last.Content, 100))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noTrace, "no-trace", false, "Do not print the reasoning steps")
	return cmd
}

func printTrace(w io.Writer, trace chat.TraceView) {
	fmt.Fprintln(w, traceStyle.Render("Reasoning ("+trace.Summary()+")"))
	for i, step := range trace.Steps {
		fmt.Fprintln(w, traceStyle.Render(fmt.Sprintf("  %d.", i+1)))
		for _, f := range [][2]string{
			{"Thought", step.Thought},
			{"Action", step.Action},
			{"Input", step.ActionInput},
			{"Observation", step.Observation},
		} {
			if f[1] != "" {
				fmt.Fprintf(w, "     %s %s\n", mutedStyle.Render(f[0]+":"), f[1])
			}
		}
	}
	fmt.Fprintln(w)
}

func emailsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "emails",
		Short: "List recent emails with extracted CRM data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			emails, err := newClient(cfg, cliLogger()).GetEmails(cmd.Context(), limit)
			if err != nil {
				return err
			}

			t := newTable("Date", "From", "Subject", "Company", "Next step")
			for _, e := range emails {
				var company, next string
				if e.ExtractedData != nil {
					company, next = e.ExtractedData.Company, e.ExtractedData.NextStep
				}
				t.Row(e.Date, e.FromEmail, e.Subject, company, next)
			}
			fmt.Println(titleStyle.Render(fmt.Sprintf("%d emails", len(emails))))
			fmt.Println(t)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of emails")
	return cmd
}

func eventsCmd() *cobra.Command {
	var maxResults int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List and manage calendar events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			events, err := newClient(cfg, cliLogger()).GetCalendarEvents(cmd.Context(), maxResults)
			if err != nil {
				return err
			}

			t := newTable("ID", "Start", "End", "Summary", "Location")
			for _, ev := range events {
				t.Row(ev.ID, ev.Start, ev.End, ev.Summary, ev.Location)
			}
			fmt.Println(t)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxResults, "max", 10, "Maximum number of events")

	cmd.AddCommand(eventsCreateCmd())
	cmd.AddCommand(eventsUpdateCmd())
	return cmd
}

type eventFlags struct {
	summary     string
	start       string
	end         string
	description string
	location    string
	attendees   []string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.summary, "summary", "", "Event title")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time (RFC 3339)")
	cmd.Flags().StringVar(&f.end, "end", "", "End time (RFC 3339)")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.location, "location", "", "Location")
	cmd.Flags().StringSliceVar(&f.attendees, "attendee", nil, "Attendee email (repeatable)")
}

func eventsCreateCmd() *cobra.Command {
	var f eventFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a calendar event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.summary == "" || f.start == "" || f.end == "" {
				return errors.New("--summary, --start and --end are required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ev, err := newClient(cfg, cliLogger()).CreateCalendarEvent(cmd.Context(), api.CreateCalendarEventRequest{
				Summary:     f.summary,
				StartTime:   f.start,
				EndTime:     f.end,
				Description: f.description,
				Location:    f.location,
				Attendees:   f.attendees,
			})
			if err != nil {
				return err
			}
			fmt.Println(okStyle.Render("created " + ev.ID))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func eventsUpdateCmd() *cobra.Command {
	var f eventFlags

	cmd := &cobra.Command{
		Use:   "update [event-id]",
		Short: "Update fields of a calendar event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ev, err := newClient(cfg, cliLogger()).UpdateCalendarEvent(cmd.Context(), args[0], api.UpdateCalendarEventRequest{
				Summary:     f.summary,
				StartTime:   f.start,
				EndTime:     f.end,
				Description: f.description,
				Location:    f.location,
				Attendees:   f.attendees,
			})
			if err != nil {
				return err
			}
			fmt.Println(okStyle.Render("updated " + ev.ID))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func interactionsCmd() *cobra.Command {
	var limit, days int

	cmd := &cobra.Command{
		Use:   "interactions",
		Short: "List interactions with a summary by medium",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := newClient(cfg, cliLogger())
			ctx := cmd.Context()

			interactions, err := client.GetInteractions(ctx, limit)
			if err != nil {
				return err
			}
			freq, err := client.GetInteractionFrequency(ctx, days)
			if err != nil {
				return err
			}

			t := newTable("Contact", "Company", "Medium", "Deal value", "Next step", "Follow up")
			for _, in := range interactions {
				t.Row(in.ContactName, in.Company, in.InteractionMedium,
					formatMoney(in.DealValue), in.NextStep, in.FollowUpDate)
			}
			fmt.Println(t)

			summary := newTable("Medium", "Interactions", "Deal value")
			for _, mc := range crm.InteractionsByMedium(interactions) {
				summary.Row(mc.Medium, strconv.Itoa(mc.Count), formatMoney(mc.DealValue))
			}
			summary.Row("total", strconv.Itoa(len(interactions)), formatMoney(crm.SumDealValue(interactions)))
			fmt.Println(summary)

			totals := crm.FrequencyTotals(freq)
			fmt.Println(mutedStyle.Render(fmt.Sprintf("last %d days: %d emails, %d voice calls, %d total",
				len(freq), totals.Emails, totals.VoiceCalls, totals.Total)))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of interactions")
	cmd.Flags().IntVar(&days, "days", 7, "Days of interaction frequency to summarize")
	return cmd
}

func formatMoney(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("$%.2f", v)
}

func mockCmd() *cobra.Command {
	var addr string
	var latency time.Duration

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a canned CRM backend for offline use",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if debugMode {
				level = slog.LevelDebug
			}
			logger := logging.New(os.Stderr, level)

			srv := &http.Server{
				Addr:         addr,
				Handler:      mockapi.New(mockapi.Options{Latency: latency, Logger: logger}).Router(),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("mock backend starting", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("mock backend: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8001", "Listen address")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Artificial delay before each chat reply")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the crmassist config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("配置文件已存在: %s（使用 --force 覆盖）", path)
			}
			cfg := config.DefaultConfig()
			if apiURL != "" {
				cfg.APIURL = apiURL
			}
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Println(okStyle.Render("配置已保存到 " + utils.GetConfigPathForDisplay()))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Println(mutedStyle.Render("# " + utils.GetConfigPathForDisplay()))
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
