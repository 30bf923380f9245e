// Package report summarizes a crawl run on stdout.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kwokkawai/HKHousingDataCrawl/models"
)

// Summary aggregates the outcome of one run.
type Summary struct {
	TotalRecords  int
	TotalFailures int

	RecordsBySource map[string]int
	RecordsByRegion map[string]int
	FailuresByWhy   map[string]int

	PricedRecords int
	MinPrice      float64
	MaxPrice      float64
	AvgPrice      float64
	MostExpensive *models.PropertyRecord
}

// Build computes a Summary over the run's records and failures.
func Build(records []*models.PropertyRecord, failures []models.FailedURL) *Summary {
	s := &Summary{
		TotalRecords:    len(records),
		TotalFailures:   len(failures),
		RecordsBySource: make(map[string]int),
		RecordsByRegion: make(map[string]int),
		FailuresByWhy:   make(map[string]int),
	}

	var total float64
	for _, r := range records {
		s.RecordsBySource[string(r.Source)]++
		if r.Region != "" {
			s.RecordsByRegion[r.Region]++
		}
		if r.Price == nil || *r.Price <= 0 {
			continue
		}
		p := *r.Price
		if s.PricedRecords == 0 || p < s.MinPrice {
			s.MinPrice = p
		}
		if s.PricedRecords == 0 || p > s.MaxPrice {
			s.MaxPrice = p
			s.MostExpensive = r
		}
		total += p
		s.PricedRecords++
	}
	if s.PricedRecords > 0 {
		s.AvgPrice = round2(total / float64(s.PricedRecords))
		s.MinPrice = round2(s.MinPrice)
		s.MaxPrice = round2(s.MaxPrice)
	}

	for _, f := range failures {
		s.FailuresByWhy[f.Reason]++
	}
	return s
}

// Print renders the summary to stdout.
func Print(s *Summary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  HK PROPERTY CRAWL SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Records extracted : \033[1m%d\033[0m\n", s.TotalRecords)
	fmt.Printf("  URLs failed       : \033[1m%d\033[0m\n", s.TotalFailures)
	for _, kv := range sortedCounts(s.RecordsBySource) {
		fmt.Printf("  %-17s : %d\n", kv.key, kv.count)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Price Statistics (HKD)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if s.PricedRecords > 0 {
		fmt.Printf("  Average price : \033[1;32m$%.0f\033[0m\n", s.AvgPrice)
		fmt.Printf("  Minimum price : \033[1;32m$%.0f\033[0m\n", s.MinPrice)
		fmt.Printf("  Maximum price : \033[1;32m$%.0f\033[0m\n", s.MaxPrice)
		if s.MostExpensive != nil {
			fmt.Printf("  Most expensive: %s\n", truncate(displayName(s.MostExpensive), 40))
		}
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Records by Region\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(s.RecordsByRegion) == 0 {
		fmt.Printf("  No region data\n")
	} else {
		for _, kv := range sortedCounts(s.RecordsByRegion) {
			bar := strings.Repeat("█", kv.count)
			fmt.Printf("  %-14s %s (%d)\n", truncate(kv.key, 12), bar, kv.count)
		}
	}
	fmt.Println()

	if len(s.FailuresByWhy) > 0 {
		fmt.Printf("\033[1;33m  Failures by Reason\033[0m\n")
		fmt.Printf("  %s\n", thin)
		for _, kv := range sortedCounts(s.FailuresByWhy) {
			fmt.Printf("  %-14s : %d\n", kv.key, kv.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, c := range m {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func displayName(r *models.PropertyRecord) string {
	if r.EstateName != "" {
		return r.EstateName
	}
	if r.Title != "" {
		return r.Title
	}
	return r.URL
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
