package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "folioctl",
		Usage: "operate a folio server from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "folio server base URL",
				EnvVars: []string{"FOLIO_SERVER"},
			},
			&cli.StringFlag{
				Name:     "tenant",
				Usage:    "tenant id sent as X-Tenant-ID",
				EnvVars:  []string{"FOLIO_TENANT"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "admin API key for protected endpoints",
				EnvVars: []string{"FOLIO_API_KEY"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "quickentry",
				Usage: "bulk transaction entry",
				Subcommands: []*cli.Command{
					{
						Name:      "import",
						Usage:     "parse a quick-entry file and commit the accepted rows",
						ArgsUsage: "PORTFOLIO_ID FILE",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "dry-run",
								Usage: "parse and validate only, commit nothing",
							},
						},
						Action: importQuickEntry,
					},
				},
			},
			{
				Name:  "snapshot",
				Usage: "portfolio valuation snapshots",
				Subcommands: []*cli.Command{
					{
						Name:      "generate",
						Usage:     "build a snapshot now",
						ArgsUsage: "PORTFOLIO_ID",
						Action:    generateSnapshot,
					},
					{
						Name:      "list",
						Usage:     "list recent snapshots",
						ArgsUsage: "PORTFOLIO_ID",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 30},
						},
						Action: listSnapshots,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func importQuickEntry(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: folioctl quickentry import PORTFOLIO_ID FILE", 2)
	}
	portfolioID, path := c.Args().Get(0), c.Args().Get(1)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var rows []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return cli.Exit("no rows to import", 1)
	}

	endpoint := fmt.Sprintf("%s/api/v1/portfolios/%s/quickentry", c.String("server"), portfolioID)
	if !c.Bool("dry-run") {
		endpoint += "?commit=true"
	}

	body, err := json.Marshal(map[string][]string{"rows": rows})
	if err != nil {
		return err
	}

	resp, err := doRequest(c, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}

	var parsed struct {
		Accepted int `json:"accepted"`
		Rejected int `json:"rejected"`
		Results  []struct {
			Index  int    `json:"index"`
			Raw    string `json:"raw"`
			Errors []struct {
				Field  string `json:"field"`
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"results"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	fmt.Printf("accepted %d, rejected %d of %d rows\n", parsed.Accepted, parsed.Rejected, len(rows))
	for _, r := range parsed.Results {
		for _, e := range r.Errors {
			fmt.Printf("  row %d (%s): %s: %s\n", r.Index+1, r.Raw, e.Field, e.Reason)
		}
	}
	return nil
}

func generateSnapshot(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: folioctl snapshot generate PORTFOLIO_ID", 2)
	}

	endpoint := fmt.Sprintf("%s/api/v1/portfolios/%s/snapshots", c.String("server"), c.Args().Get(0))
	resp, err := doRequest(c, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}

	var snap struct {
		ID         string `json:"id"`
		TotalValue string `json:"totalValue"`
		Cash       string `json:"cash"`
		Stale      bool   `json:"stale"`
	}
	if err := json.Unmarshal(resp, &snap); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	fmt.Printf("snapshot %s: total %s, cash %s, stale=%v\n", snap.ID, snap.TotalValue, snap.Cash, snap.Stale)
	return nil
}

func listSnapshots(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: folioctl snapshot list PORTFOLIO_ID", 2)
	}

	endpoint := fmt.Sprintf("%s/api/v1/portfolios/%s/snapshots?limit=%d",
		c.String("server"), c.Args().Get(0), c.Int("limit"))
	resp, err := doRequest(c, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	var snaps []struct {
		AsOf       time.Time `json:"asOf"`
		TotalValue string    `json:"totalValue"`
		Cash       string    `json:"cash"`
		Stale      bool      `json:"stale"`
	}
	if err := json.Unmarshal(resp, &snaps); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	for _, s := range snaps {
		marker := ""
		if s.Stale {
			marker = " (stale)"
		}
		fmt.Printf("%s  total %-14s cash %s%s\n", s.AsOf.Format("2006-01-02 15:04"), s.TotalValue, s.Cash, marker)
	}
	return nil
}

func doRequest(c *cli.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(c.Context, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", c.String("tenant"))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := c.String("api-key"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
