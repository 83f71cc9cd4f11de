package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	pricingclient "github.com/aguasol/aguasol-backend/pkg/pricing/client"
)

type output struct {
	Product string              `json:"product"`
	Quote   pricingclient.Quote `json:"quote"`
	Remote  string              `json:"remote_error,omitempty"`
}

func main() {
	productFlag := flag.String("product", "", "product id to quote")
	quantity := flag.Int("qty", 1, "units to price")
	offline := flag.Bool("offline", false, "skip the remote calculator and price locally")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "quote", Output: os.Stderr})
	ctx := context.Background()

	_ = godotenv.Load()

	productID, err := uuid.Parse(*productFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -product:", err)
		os.Exit(2)
	}

	cfg, err := config.LoadPricingClient()
	if err != nil {
		logg.Error(ctx, "failed to load pricing client config", err)
		os.Exit(1)
	}

	opts := []pricingclient.Option{pricingclient.WithTimeout(cfg.Timeout)}
	if cfg.Token != "" {
		opts = append(opts, pricingclient.WithBearerToken(cfg.Token))
	}
	client, err := pricingclient.New(cfg.BaseURL, opts...)
	if err != nil {
		logg.Error(ctx, "failed to create pricing client", err)
		os.Exit(1)
	}

	product, err := client.Product(ctx, productID)
	if err != nil {
		logg.Error(logg.WithField(ctx, "product_id", productID.String()), "failed to load product", err)
		os.Exit(1)
	}

	var remote pricingclient.Calculator = client
	if *offline {
		remote = nil
	}
	quote := pricingclient.NewQuoter(remote, logg).Quote(ctx, product, *quantity)

	out := output{Product: product.Name, Quote: quote}
	if quote.RemoteErr != nil {
		out.Remote = quote.RemoteErr.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logg.Error(ctx, "failed to write quote", err)
		os.Exit(1)
	}
}
