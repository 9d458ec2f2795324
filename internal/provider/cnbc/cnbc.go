// Package cnbc reads last price and 52-week range for batches of ticker
// symbols from the inline quote data of the CNBC quotes page.
package cnbc

import (
	"context"
	"errors"
	"fmt"
	"log"

	"securityprices/internal/provider"
	"securityprices/internal/validation"
)

// Provider implements provider.Provider on top of a Client.
type Provider struct {
	name   string
	client *Client
}

func New(client *Client) *Provider {
	if client == nil {
		client = NewClient()
	}
	return &Provider{name: "CNBC", client: client}
}

func (p *Provider) Name() string { return p.name }

// Fetch requests one page for the whole batch and returns a quote per
// symbol in the order given. Each symbol is joined to the record carrying
// its own symbol text, so a response in a different order still lines up;
// a symbol the page does not carry fails the batch.
func (p *Provider) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	body, err := p.client.RequestBatch(ctx, symbols)
	if err != nil {
		return nil, err
	}

	ext := Extract(body)
	if err := ext.Validate(); err != nil {
		log.Printf("ERROR! The extracted lists are NOT equal length: %v", err)
		return nil, err
	}
	log.Printf("SUCCESS! The extracted lists are equal length (%d).", len(ext.Symbols))

	block, found := Block(body)
	bySymbol, err := Records(block)
	if found && errors.Is(err, ErrMalformedBlock) {
		log.Printf("quote data is not JSON, pairing the extracted lists by position")
		bySymbol, err = ext.Records()
	}
	if err != nil {
		return nil, fmt.Errorf("parsing quote data: %w", err)
	}

	out := make([]provider.Quote, 0, len(symbols))
	for _, sym := range symbols {
		q, ok := bySymbol[sym]
		if !ok {
			return nil, fmt.Errorf("%w: %s", provider.ErrMissingSymbol, sym)
		}
		if err := validation.Quote(q); err != nil {
			return nil, err
		}
		if err := validation.Range(q); err != nil {
			log.Printf("WARNING! %v", err)
		}
		out = append(out, q)
	}
	return out, nil
}
