package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storefront/internal/content"
)

// Writes a home content document with a flash sale ending -hours from now.
//
//	go run ./scripts -out data/content/home.json -hours 48 -categories "Figures,Plush"
func main() {
	out := flag.String("out", "data/content/home.json", "output file")
	headline := flag.String("headline", "New arrivals every week", "hero headline")
	subheadline := flag.String("subheadline", "Figures, plush and collectibles, shipped nationwide.", "hero subheadline")
	hours := flag.Int("hours", 48, "flash sale length in hours, 0 for none")
	categories := flag.String("categories", "Figures,Plush,Model Kits,Accessories", "comma-separated featured categories")
	flag.Parse()

	home := content.Home{
		Headline:    *headline,
		Subheadline: *subheadline,
	}
	if *hours > 0 {
		home.FlashSaleEndsAt = time.Now().UTC().Add(time.Duration(*hours) * time.Hour).Truncate(time.Second)
	}
	for _, name := range strings.Split(*categories, ",") {
		if name = strings.TrimSpace(name); name != "" {
			home.FeaturedCategories = append(home.FeaturedCategories, content.FeaturedCategory{Name: name})
		}
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}
	data, err := json.MarshalIndent(home, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode content: %v", err)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}

	fmt.Printf("Created %s with %d featured categories\n", *out, len(home.FeaturedCategories))
	if !home.FlashSaleEndsAt.IsZero() {
		fmt.Printf("Flash sale ends at %s\n", home.FlashSaleEndsAt.Format(time.RFC3339))
	}
	fmt.Println("\nSend SIGHUP to a running storefront to reload it.")
}
