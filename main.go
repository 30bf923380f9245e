package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kwokkawai/HKHousingDataCrawl/config"
	"github.com/kwokkawai/HKHousingDataCrawl/crawler"
	"github.com/kwokkawai/HKHousingDataCrawl/models"
	"github.com/kwokkawai/HKHousingDataCrawl/render"
	"github.com/kwokkawai/HKHousingDataCrawl/report"
	"github.com/kwokkawai/HKHousingDataCrawl/sites"
	"github.com/kwokkawai/HKHousingDataCrawl/storage"
	"github.com/kwokkawai/HKHousingDataCrawl/utils"
)

var siteOrder = []string{"centanet", "28hse", "ricacorp"}

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	site := flag.String("site", "all", "site to crawl: centanet, 28hse, ricacorp or all")
	maxPages := flag.Int("max-pages", cfg.MaxPages, "listing pages to traverse per site")
	maxProperties := flag.Int("max-properties", cfg.MaxProperties, "record cap per site")
	category := flag.String("category", "", "listing category (site default when empty)")
	region := flag.String("region", "", "keep only records whose region matches")
	output := flag.String("output", cfg.OutputDir, "output directory")
	usePG := flag.Bool("pg", false, "also write records to PostgreSQL")
	resume := flag.String("resume", "", "failed-urls file to re-crawl instead of paginating")
	flag.Parse()

	adapters := sites.All()
	defs := make(map[string]*sites.Definition, len(adapters))
	for name, a := range adapters {
		defs[name] = a.Def
	}
	if err := sites.LoadOverrides(cfg.SitesConfig, defs); err != nil {
		logger.Error("Site config invalid: %v", err)
		os.Exit(2)
	}

	var selected []string
	if *site == "all" {
		selected = siteOrder
	} else if _, ok := adapters[*site]; ok {
		selected = []string{*site}
	} else {
		logger.Error("Unknown site %q (want centanet, 28hse, ricacorp or all)", *site)
		os.Exit(2)
	}
	if *resume != "" && len(selected) != 1 {
		logger.Error("--resume needs a single --site")
		os.Exit(2)
	}

	logger.Info("=== HK Housing Data Crawl starting ===")
	logger.Info("Config — sites: %v | pages: %d | properties: %d | output: %s",
		selected, *maxPages, *maxProperties, *output)

	chromeBin := cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = render.FindChromeBinary()
	}
	renderer := render.NewChrome(render.Options{
		Headless: cfg.Headless,
		ExecPath: chromeBin,
	})
	defer renderer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := crawler.New(renderer, logger)

	var (
		allRecords  []*models.PropertyRecord
		allFailures []models.FailedURL
	)
	for _, name := range selected {
		adapter := adapters[name]
		logger.Info("--- crawling %s ---", name)

		var (
			res *crawler.Result
			err error
		)
		if *resume != "" {
			var urls []string
			urls, err = storage.ReadFailedURLs(*resume)
			if err != nil {
				logger.Error("Cannot read resume file: %v", err)
				os.Exit(2)
			}
			res, err = runner.CrawlURLs(ctx, adapter, urls, *maxProperties)
		} else {
			res, err = runner.Crawl(ctx, adapter, crawler.Options{
				MaxPages:      *maxPages,
				MaxProperties: *maxProperties,
				Category:      *category,
				Region:        *region,
			})
		}
		if err != nil {
			if errors.Is(err, crawler.ErrUnreachable) && len(selected) > 1 {
				logger.Error("%s unreachable, continuing with remaining sites: %v", name, err)
				continue
			}
			logger.Error("Crawl of %s failed: %v", name, err)
			os.Exit(1)
		}

		logger.Info("%s done: %d records, %d failed urls", name, len(res.Records), len(res.Failures))
		allRecords = append(allRecords, res.Records...)
		allFailures = append(allFailures, res.Failures...)
	}

	if err := writeOutputs(logger, cfg, *output, *usePG, allRecords, allFailures); err != nil {
		logger.Error("Writing outputs failed: %v", err)
		os.Exit(1)
	}

	report.Print(report.Build(allRecords, allFailures))
	logger.Info("=== Crawl complete ===")
}

// writeOutputs persists the run under a shared timestamp so the JSON, CSV
// and failed-url files of one run are trivially matched up.
func writeOutputs(logger *utils.Logger, cfg *config.Config, dir string, usePG bool,
	records []*models.PropertyRecord, failures []models.FailedURL) error {

	ts := time.Now().Format("20060102_150405")

	jsonWriter, err := storage.NewJSONWriter(filepath.Join(dir, fmt.Sprintf("properties_%s.json", ts)))
	if err != nil {
		return err
	}
	if err := jsonWriter.Write(records); err != nil {
		return err
	}

	csvWriter, err := storage.NewCSVWriter(filepath.Join(dir, fmt.Sprintf("properties_%s.csv", ts)))
	if err != nil {
		return err
	}
	defer csvWriter.Close()
	if err := csvWriter.Write(records); err != nil {
		return err
	}

	if len(failures) > 0 {
		failedWriter, err := storage.NewFailedURLWriter(filepath.Join(dir, fmt.Sprintf("failed_urls_%s.txt", ts)))
		if err != nil {
			return err
		}
		defer failedWriter.Close()
		if err := failedWriter.WriteFailures(failures); err != nil {
			return err
		}
		logger.Warn("%d urls failed; see failed_urls_%s.txt to resume them", len(failures), ts)
	}

	if usePG {
		pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			return fmt.Errorf("postgres sink: %w", err)
		}
		defer pgWriter.Close()
		if err := pgWriter.Write(records); err != nil {
			return fmt.Errorf("postgres write: %w", err)
		}
		logger.Info("%d records upserted into PostgreSQL", len(records))
	}

	logger.Info("Outputs written to %s (properties_%s.json/.csv)", dir, ts)
	return nil
}
