// Command crmctl is a terminal front-end for the CRM API. It lists
// customers and their opportunities as tables and creates, updates or
// deletes opportunities.
//
// Usage:
//
//	crmctl customers --sort=name --direction=asc --limit=10
//	crmctl customer <customer-id>
//	crmctl opportunities <customer-id>
//	crmctl save <customer-id> --name="Renewal" --status=New [--id=<opportunity-id>]
//	crmctl delete <customer-id> <opportunity-id>
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
