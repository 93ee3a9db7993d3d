package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/store"
)

// Imports historical sales into the transaction store, bypassing the API.
// Intended for bootstrapping a deployment from POS exports before the
// ingest queue takes over. The file must carry a header row naming at
// least product_id, date, and quantity; a category column is optional.
func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	inputFile := flag.String("file", "", "CSV file to import")
	batchSize := flag.Int("batch-size", 500, "Rows per store append")
	defaultCategory := flag.String("category", "", "Category for rows without one")
	dryRun := flag.Bool("dry-run", false, "Parse and validate without storing")

	flag.Parse()

	// Validate required parameters
	if *inputFile == "" {
		log.Fatal("Error: -file parameter is required")
	}
	if *batchSize <= 0 {
		log.Fatal("Error: -batch-size must be positive")
	}

	file, err := os.Open(*inputFile)
	if err != nil {
		log.Fatalf("Error opening input file: %v\n", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		log.Fatalf("Error reading header row: %v\n", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		log.Fatalf("Error: %v\n", err)
	}

	// Load configuration for the store connection
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v\n", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	var st store.Store
	if !*dryRun {
		st, err = store.NewStore(ctx, cfg.Store)
		if err != nil {
			log.Fatalf("Error opening transaction store: %v\n", err)
		}
		defer func() { _ = st.Close() }()
		fmt.Printf("Importing into %s store\n", cfg.Store.Type)
	} else {
		fmt.Printf("Dry run: validating without storing\n")
	}

	var (
		batch    []store.Transaction
		imported int
		line     = 1 // header consumed
	)

	flush := func() error {
		if len(batch) == 0 || *dryRun {
			imported += len(batch)
			batch = batch[:0]
			return nil
		}
		if err := st.Append(ctx, batch); err != nil {
			return fmt.Errorf("append batch ending at line %d: %w", line, err)
		}
		imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Error reading line %d: %v\n", line+1, err)
		}
		line++

		txn, err := parseRow(record, cols, *defaultCategory)
		if err != nil {
			log.Fatalf("Error on line %d: %v\n", line, err)
		}

		batch = append(batch, txn)
		if len(batch) >= *batchSize {
			if err := flush(); err != nil {
				log.Fatalf("Error storing batch: %v\n", err)
			}
		}
	}

	if err := flush(); err != nil {
		log.Fatalf("Error storing batch: %v\n", err)
	}

	fmt.Printf("Imported %d transactions from %s\n", imported, *inputFile)
}

// columnMap holds the index of each recognized column, -1 when absent
type columnMap struct {
	productID int
	category  int
	date      int
	quantity  int
}

// mapColumns locates the recognized columns in the header row,
// case-insensitively
func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{productID: -1, category: -1, date: -1, quantity: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "product_id":
			cols.productID = i
		case "category":
			cols.category = i
		case "date":
			cols.date = i
		case "quantity":
			cols.quantity = i
		}
	}
	if cols.productID < 0 || cols.date < 0 || cols.quantity < 0 {
		return cols, fmt.Errorf("header must name product_id, date, and quantity columns, got: %s",
			strings.Join(header, ","))
	}
	return cols, nil
}

// parseRow converts one CSV record into a store transaction
func parseRow(record []string, cols columnMap, defaultCategory string) (store.Transaction, error) {
	get := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := models.ParseDate(get(cols.date))
	if err != nil {
		return store.Transaction{}, fmt.Errorf("invalid date %q: expected RFC3339 or YYYY-MM-DD", get(cols.date))
	}

	quantity, err := strconv.ParseFloat(get(cols.quantity), 64)
	if err != nil {
		return store.Transaction{}, fmt.Errorf("invalid quantity %q", get(cols.quantity))
	}

	category := get(cols.category)
	if category == "" {
		category = defaultCategory
	}

	return store.Transaction{
		ProductID: get(cols.productID),
		Category:  category,
		Date:      date,
		Quantity:  quantity,
	}, nil
}
