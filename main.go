package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kagi-unofficial/kagi-go/kagi"
)

func main() {
	token := os.Getenv("KAGI_API_KEY")
	client := kagi.NewClient(token)

	// basic FastGPT call
	resp, err := client.Generate(context.Background(), "What is Microsoft's revenue and operating income for 2024?")
	if err != nil {
		panic(err)
	}

	fmt.Println(resp.Output)
	for i, ref := range resp.References {
		fmt.Printf("%d. %s (%s)\n", i+1, ref.Title, ref.URL)
	}
}
