package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/services"
	"github.com/demandcast/demandcast/internal/store"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	category := flag.String("category", "", "Export every product in this category")
	product := flag.String("product", "", "Export a single product (overrides -category)")
	granularity := flag.String("granularity", "raw", "Row granularity (raw, weekly, monthly)")
	output := flag.String("output", "./data/csv", "Output CSV directory")

	flag.Parse()

	// Validate required parameters
	if *product == "" && *category == "" {
		log.Fatal("Error: -product or -category parameter is required")
	}

	var g forecast.Granularity
	if *granularity != "raw" {
		parsed, err := forecast.ParseGranularity(*granularity)
		if err != nil {
			log.Fatalf("Error: invalid granularity '%s'. Valid options: raw, weekly, monthly\n", *granularity)
		}
		g = parsed
	}

	// Load configuration for the store connection
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v\n", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := store.NewStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Error opening transaction store: %v\n", err)
	}
	defer func() { _ = st.Close() }()

	// Resolve the product list
	products, scope, err := resolveProducts(ctx, st, *product, *category)
	if err != nil {
		log.Fatalf("Error resolving products: %v\n", err)
	}
	if len(products) == 0 {
		log.Printf("Warning: no products found\n")
		return
	}

	fmt.Printf("Exporting %d products from %s store\n", len(products), cfg.Store.Type)

	// Ensure output directory exists
	if err := os.MkdirAll(*output, 0o755); err != nil {
		log.Fatalf("Error creating output directory: %v\n", err)
	}

	outputFile := filepath.Join(*output,
		fmt.Sprintf("sales_%s_%s_%s.csv", scope, *granularity, time.Now().Format("20060102")))

	var rows int
	if *granularity == "raw" {
		rows, err = exportRaw(ctx, st, products, outputFile)
	} else {
		rows, err = exportBucketed(ctx, st, products, g, outputFile)
	}
	if err != nil {
		log.Fatalf("Error exporting to CSV: %v\n", err)
	}

	fmt.Printf("Exported %d rows to: %s\n", rows, outputFile)
}

// resolveProducts returns the product IDs to export and a scope label used
// in the output file name
func resolveProducts(ctx context.Context, st store.Store, product, category string) ([]string, string, error) {
	if product != "" {
		return []string{product}, product, nil
	}
	products, err := st.ProductsByCategory(ctx, category)
	if err != nil {
		return nil, "", fmt.Errorf("list products for category %s: %w", category, err)
	}
	return products, category, nil
}

// exportRaw writes transactions exactly as stored, one line item per row
func exportRaw(ctx context.Context, st store.Store, products []string, filename string) (int, error) {
	file, err := os.Create(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"product_id", "category", "date", "quantity"}); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	rows := 0
	for _, id := range products {
		txns, err := st.ListByProduct(ctx, id)
		if err != nil {
			return rows, fmt.Errorf("list transactions for %s: %w", id, err)
		}
		for _, txn := range txns {
			record := []string{
				txn.ProductID,
				txn.Category,
				txn.Date.Format(time.RFC3339),
				strconv.FormatFloat(txn.Quantity, 'f', -1, 64),
			}
			if err := writer.Write(record); err != nil {
				return rows, fmt.Errorf("failed to write row: %w", err)
			}
			rows++
		}
	}
	return rows, nil
}

// exportBucketed writes each product's zero-filled demand series, the same
// view the engine fits against. Products without enough history for a fit
// are skipped with a warning.
func exportBucketed(ctx context.Context, st store.Store, products []string, g forecast.Granularity, filename string) (int, error) {
	file, err := os.Create(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"product_id", "bucket", "quantity"}); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	source := services.StoreTransactionSource{Store: st}

	rows := 0
	for _, id := range products {
		txns, err := source.ListByProduct(ctx, id)
		if err != nil {
			return rows, fmt.Errorf("list transactions for %s: %w", id, err)
		}

		series, err := forecast.Aggregate(txns, id, g)
		if err != nil {
			var insufficient *forecast.InsufficientHistoryError
			if errors.As(err, &insufficient) {
				log.Printf("Warning: skipping %s: %v\n", id, err)
				continue
			}
			return rows, fmt.Errorf("aggregate %s: %w", id, err)
		}

		for _, point := range series {
			record := []string{
				id,
				point.Bucket.Format("2006-01-02"),
				strconv.FormatFloat(point.Value, 'f', -1, 64),
			}
			if err := writer.Write(record); err != nil {
				return rows, fmt.Errorf("failed to write row: %w", err)
			}
			rows++
		}
	}
	return rows, nil
}
