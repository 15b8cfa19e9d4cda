// Command benchmark runs repeated detections against a live complyscan API
// and reports latency, the strategy used and verdict counts per site.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/use-agent/complyscan/models"
)

var (
	apiURL  = flag.String("api-url", "http://localhost:8080", "complyscan API base URL")
	repeat  = flag.Int("runs", 3, "detections per site")
	outPath = flag.String("output", "benchmark-results.json", "where to write the JSON report")
	sites   = flag.String("sites", "", "comma-separated URLs overriding the built-in set")
)

// builtinSites mixes server-rendered pages with client-rendered shells.
var builtinSites = map[string]string{
	"https://example.com":    "static",
	"https://www.yandex.ru":  "portal",
	"https://www.ozon.ru":    "shop",
	"https://www.tinkoff.ru": "bank",
	"https://vk.com":         "spa",
}

type sample struct {
	Run        int     `json:"run"`
	OK         bool    `json:"ok"`
	Err        string  `json:"error,omitempty"`
	Rendering  string  `json:"rendering,omitempty"`
	Confidence float64 `json:"confidence"`
	TotalMs    int64   `json:"total_ms"`
	StaticMs   int64   `json:"static_ms"`
	DynamicMs  int64   `json:"dynamic_ms"`
	Verdicts   [3]int  `json:"verdicts"` // passed, warning, failed
}

type series struct {
	Site    string   `json:"site"`
	Kind    string   `json:"kind,omitempty"`
	Samples []sample `json:"samples"`
}

func (s series) succeeded() []sample {
	return lo.Filter(s.Samples, func(x sample, _ int) bool { return x.OK })
}

func (s series) mean(field func(sample) float64) float64 {
	ok := s.succeeded()
	if len(ok) == 0 {
		return 0
	}
	return lo.SumBy(ok, field) / float64(len(ok))
}

type report struct {
	StartedAt time.Time `json:"started_at"`
	API       string    `json:"api"`
	Runs      int       `json:"runs"`
	Series    []series  `json:"series"`
}

var client = &http.Client{Timeout: 90 * time.Second}

func main() {
	flag.Parse()

	targets := lo.Keys(builtinSites)
	slices.Sort(targets)
	if *sites != "" {
		targets = lo.Compact(lo.Map(strings.Split(*sites, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	}

	if resp, err := client.Get(*apiURL + "/api/v1/health"); err != nil {
		fmt.Fprintf(os.Stderr, "benchmark: API unreachable at %s: %v\n", *apiURL, err)
		os.Exit(1)
	} else {
		resp.Body.Close()
	}

	rep := report{StartedAt: time.Now().UTC(), API: *apiURL, Runs: *repeat}
	for _, site := range targets {
		s := series{Site: site, Kind: builtinSites[site]}
		fmt.Printf("%s\n", site)
		for run := 1; run <= *repeat; run++ {
			x := detect(site, run)
			if x.OK {
				fmt.Printf("  #%d %6dms  %-10s %.2f\n", run, x.TotalMs, x.Rendering, x.Confidence)
			} else {
				fmt.Printf("  #%d error: %s\n", run, x.Err)
			}
			s.Samples = append(s.Samples, x)
		}
		rep.Series = append(rep.Series, s)
	}

	summarize(os.Stdout, rep.Series)

	raw, err := json.MarshalIndent(rep, "", "  ")
	if err == nil {
		err = os.WriteFile(*outPath, raw, 0o644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "benchmark: write report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nreport: %s\n", *outPath)
}

func detect(site string, run int) sample {
	x := sample{Run: run}

	body, _ := json.Marshal(models.DetectRequest{URL: site})
	resp, err := client.Post(*apiURL+"/api/v1/detect", "application/json", bytes.NewReader(body))
	if err != nil {
		x.Err = err.Error()
		return x
	}
	defer resp.Body.Close()

	var out models.DetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		x.Err = "decode: " + err.Error()
		return x
	}
	if !out.Success || out.Data == nil {
		x.Err = resp.Status
		if out.Error != nil {
			x.Err = out.Error.Code + ": " + out.Error.Message
		}
		return x
	}

	d := out.Data
	x.OK = true
	x.Rendering = d.RenderingMethod
	x.Confidence = d.Confidence
	x.TotalMs, x.StaticMs, x.DynamicMs = d.Timing.TotalMs, d.Timing.StaticMs, d.Timing.DynamicMs
	for _, c := range out.Checks {
		switch c.Status {
		case models.StatusPassed:
			x.Verdicts[0]++
		case models.StatusWarning:
			x.Verdicts[1]++
		case models.StatusFailed:
			x.Verdicts[2]++
		}
	}
	return x
}

func summarize(f *os.File, all []series) {
	fmt.Fprintln(f)
	w := tabwriter.NewWriter(f, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "site\tok\ttotal\tstatic\tdynamic\trendering\tconfidence\tP/W/F\t")
	for _, s := range all {
		ok := s.succeeded()
		if len(ok) == 0 {
			fmt.Fprintf(w, "%s\t0/%d\t\t\t\t\t\t\t\n", s.Site, len(s.Samples))
			continue
		}
		last := ok[len(ok)-1]
		fmt.Fprintf(w, "%s\t%d/%d\t%.0fms\t%.0fms\t%.0fms\t%s\t%.2f\t%d/%d/%d\t\n",
			s.Site, len(ok), len(s.Samples),
			s.mean(func(x sample) float64 { return float64(x.TotalMs) }),
			s.mean(func(x sample) float64 { return float64(x.StaticMs) }),
			s.mean(func(x sample) float64 { return float64(x.DynamicMs) }),
			last.Rendering,
			s.mean(func(x sample) float64 { return x.Confidence }),
			last.Verdicts[0], last.Verdicts[1], last.Verdicts[2],
		)
	}
	w.Flush()
}
