// send-test sends a single SMS through an organization's assigned sender
// without creating any message or recipient rows. Useful for verifying
// provider credentials after onboarding a sender.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cedcast/dispatch/internal/config"
	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/provider"
	"github.com/cedcast/dispatch/internal/secrets"
	"github.com/cedcast/dispatch/internal/senderpool"
	"github.com/cedcast/dispatch/pkg/phonenumber"
	"github.com/cedcast/dispatch/pkg/segmenter"
)

func main() {
	orgSlug := flag.String("org", "", "Organization slug")
	to := flag.String("to", "", "Recipient phone number")
	body := flag.String("body", "Test message", "Message body")
	dryRun := flag.Bool("dry-run", false, "Resolve the sender and build the adapter chain without sending")
	flag.Parse()

	if *orgSlug == "" || *to == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbpool.Close()

	dbQueries := database.New(dbpool)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var decrypter secrets.Decrypter = secrets.Plaintext{}
	if cfg.EncryptionKey != "" {
		decrypter, err = secrets.NewSecretBox(cfg.EncryptionKey)
		if err != nil {
			log.Fatalf("Invalid SMS encryption key: %v", err)
		}
	}

	org, err := dbQueries.GetOrganizationBySlug(ctx, *orgSlug)
	if err != nil {
		log.Fatalf("Organization %q: %v", *orgSlug, err)
	}
	if !org.IsActive {
		log.Fatalf("Organization %q is banned", *orgSlug)
	}

	registry := provider.DefaultRegistry(cfg.Provider.Timeout)
	resolver := senderpool.NewResolver(dbQueries, decrypter, registry, cfg.Provider.HubtelAPIURL, logger)

	sender, err := resolver.Resolve(ctx, org.ID)
	if err != nil {
		log.Fatalf("Resolving sender: %v", err)
	}
	chain, err := resolver.AdapterChain(ctx, sender)
	if err != nil {
		log.Fatalf("Building adapter chain: %v", err)
	}

	phone := phonenumber.Normalize(*to, phonenumber.DefaultCountryCode)
	if phone == "" {
		log.Fatalf("Invalid phone number: %q", *to)
	}

	fmt.Printf("organization: %s (rate %s)\n", org.Name, org.SmsRate.String())
	fmt.Printf("sender:       %s via %s (%d adapter(s))\n", sender.Name, sender.Provider, len(chain))
	fmt.Printf("recipient:    %s\n", phone)
	info := segmenter.Analyze(*body)
	fmt.Printf("body:         %d part(s), ucs2=%v\n", info.Parts, info.UCS2)

	if *dryRun {
		fmt.Println("dry run, not sending")
		return
	}

	providerMsgID, err := chain.Send(ctx, phone, *body)
	if err != nil {
		log.Fatalf("Send failed: %v", err)
	}
	fmt.Printf("sent, provider message id: %s\n", providerMsgID)
}
