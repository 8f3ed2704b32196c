package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/newthinker/coinchart/internal/chart"
	"github.com/newthinker/coinchart/internal/chart/pngchart"
	"github.com/newthinker/coinchart/internal/logger"
	"github.com/newthinker/coinchart/internal/page"
	"github.com/newthinker/coinchart/internal/widget"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	renderServer   string
	renderDays     int
	renderCurrency string
	renderTheme    string
	renderOut      string
	renderEmbed    string
	renderPage     string
	renderWidth    int
	renderHeight   int
	renderSelect   []int
	renderTimeout  time.Duration
)

var renderCmd = &cobra.Command{
	Use:   "render [coin-id]",
	Short: "Render a coin page chart headlessly",
	Long: `Load a coin detail page from a running coinchart server and run its chart
pipeline: the TradingView widget is written as an HTML embed when a symbol is
configured and its script loads, otherwise the local chart is drawn to a PNG.
--select replays range button clicks on the local chart.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderServer, "server", "", "coinchart server URL (default from config)")
	renderCmd.Flags().IntVar(&renderDays, "days", 0, "initial range in days (default from config)")
	renderCmd.Flags().StringVar(&renderCurrency, "currency", "", "quote currency")
	renderCmd.Flags().StringVar(&renderTheme, "theme", "", "page theme (dark or light)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "PNG output path (default <coin>.png)")
	renderCmd.Flags().StringVar(&renderEmbed, "embed-out", "", "widget embed output path (default <coin>-widget.html)")
	renderCmd.Flags().StringVar(&renderPage, "page-out", "", "write the final page state to this path")
	renderCmd.Flags().IntVar(&renderWidth, "width", pngchart.DefaultWidth, "PNG width")
	renderCmd.Flags().IntVar(&renderHeight, "height", pngchart.DefaultHeight, "PNG height")
	renderCmd.Flags().IntSliceVar(&renderSelect, "select", nil, "range buttons to click after the first render")
	renderCmd.Flags().DurationVar(&renderTimeout, "timeout", 30*time.Second, "overall timeout")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	coinID := args[0]

	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	server := renderServer
	if server == "" {
		host := cfg.Server.Host
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		server = fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
	}
	if renderOut == "" {
		renderOut = coinID + ".png"
	}
	if renderEmbed == "" {
		renderEmbed = coinID + "-widget.html"
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), renderTimeout)
	defer cancel()

	client := &http.Client{Timeout: renderTimeout}
	doc, err := fetchPage(ctx, client, server, coinID)
	if err != nil {
		return err
	}

	pageCfg := chart.ParseConfig(doc.ChartData(), log)

	ctrl := chart.NewController(doc,
		pngchart.New(renderOut, renderWidth, renderHeight, log),
		chart.NewClient(server, client),
		chart.ControllerOptions{
			Logger:   log.Named("chart"),
			Location: chart.DisplayZone(cfg.Chart.TimezoneOffsetHours),
		},
	)

	embed, err := os.Create(renderEmbed)
	if err != nil {
		return fmt.Errorf("creating embed file: %w", err)
	}
	host := widget.NewHTTPHost(client, widget.EmbedWriter(embed, cfg.TradingView.ScriptURL))
	selector := widget.NewSelector(doc, host, widget.NewScriptLoader(nil), ctrl, widget.SelectorOptions{
		ScriptURL: cfg.TradingView.ScriptURL,
		Logger:    log.Named("widget"),
	})

	outcome := selector.SelectAndRender(ctx, pageCfg)
	embed.Close()

	out := cmd.OutOrStdout()
	if outcome.Renderer == widget.RendererWidget {
		fmt.Fprintf(out, "%s: TradingView widget %s -> %s\n", coinID, pageCfg.ExternalSymbol, renderEmbed)
	} else {
		os.Remove(renderEmbed)
		for _, days := range renderSelect {
			if !doc.ClickRange(days) {
				log.Warn("no range button for selection", zap.Int("days", days))
			}
		}
		fmt.Fprintf(out, "%s: local chart (%s, %d days) -> %s\n", coinID, outcome.Reason, ctrl.CurrentRange(), renderOut)
	}

	if renderPage != "" {
		f, err := os.Create(renderPage)
		if err != nil {
			return fmt.Errorf("creating page file: %w", err)
		}
		defer f.Close()
		if err := doc.Render(f); err != nil {
			return fmt.Errorf("writing page: %w", err)
		}
	}
	return nil
}

func fetchPage(ctx context.Context, client *http.Client, server, coinID string) (*page.HTMLDocument, error) {
	q := url.Values{}
	if renderDays > 0 {
		q.Set("days", strconv.Itoa(renderDays))
	}
	if renderCurrency != "" {
		q.Set("vs_currency", renderCurrency)
	}
	if renderTheme != "" {
		q.Set("theme", renderTheme)
	}
	target := fmt.Sprintf("%s/coins/%s", server, url.PathEscape(coinID))
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching coin page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching coin page: unexpected status %d", resp.StatusCode)
	}
	return page.Parse(resp.Body)
}
