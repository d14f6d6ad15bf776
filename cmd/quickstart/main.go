package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kagi-unofficial/kagi-go/kagi"
)

func main() {
	tokenFlag := flag.String("token", "", "Kagi API token (overrides KAGI_API_KEY)")
	flag.Parse()

	token := *tokenFlag
	if token == "" {
		token = os.Getenv("KAGI_API_KEY")
	}
	if token == "" {
		fmt.Fprintln(os.Stderr, "missing API token: set -token or KAGI_API_KEY")
		os.Exit(2)
	}
	client := kagi.NewClient(token)

	resp, err := client.Generate(context.Background(), "How many moons does Jupiter have?")
	if err != nil {
		panic(err)
	}

	fmt.Println(resp.Output)
	for _, ref := range resp.References {
		fmt.Printf("  [%s] %s\n", ref.Title, ref.URL)
	}
	fmt.Printf("balance: $%.2f\n", resp.Meta.APIBalance)
}
