package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aanand-mishra/crm-api/internal/client"
	"github.com/aanand-mishra/crm-api/internal/types"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8000"

func newRootCmd() *cobra.Command {
	var apiURL string

	root := &cobra.Command{
		Use:          "crmctl",
		Short:        "Browse customers and manage their opportunities",
		SilenceUsage: true,
	}

	def := os.Getenv("CRM_API_URL")
	if def == "" {
		def = defaultAPIURL
	}
	root.PersistentFlags().StringVar(&apiURL, "api", def, "base URL of the CRM API (env CRM_API_URL)")

	newClient := func() *client.Client {
		return client.New(apiURL, nil)
	}

	root.AddCommand(
		newCustomersCmd(newClient),
		newCustomerCmd(newClient),
		newOpportunitiesCmd(newClient),
		newSaveCmd(newClient),
		newDeleteCmd(newClient),
	)

	return root
}

func newCustomersCmd(newClient func() *client.Client) *cobra.Command {
	q := types.DefaultCustomersQuery()
	var sort, direction string

	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.Sort = types.SortField(sort)
			q.Direction = types.SortDirection(direction)
			if err := types.Validate(q); err != nil {
				return err
			}

			customers, err := newClient().ListCustomers(cmd.Context(), q)
			if err != nil {
				return err
			}
			renderCustomers(cmd.OutOrStdout(), customers...)
			return nil
		},
	}

	cmd.Flags().StringVar(&sort, "sort", string(q.Sort), "sort field: name, email, status or created")
	cmd.Flags().StringVar(&direction, "direction", string(q.Direction), "sort direction: asc or desc")
	cmd.Flags().IntVar(&q.Offset, "offset", q.Offset, "number of customers to skip")
	cmd.Flags().IntVar(&q.Limit, "limit", q.Limit, "page size")

	return cmd
}

func newCustomerCmd(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "customer <customer-id>",
		Short: "Show a customer and its opportunities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("customer id", args[0])
			if err != nil {
				return err
			}

			c := newClient()
			customer, err := c.GetCustomer(cmd.Context(), id)
			if err != nil {
				return err
			}
			opportunities, err := c.ListOpportunities(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderCustomers(out, customer)
			fmt.Fprintln(out)
			renderOpportunities(out, opportunities)
			return nil
		},
	}
}

func newOpportunitiesCmd(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "opportunities <customer-id>",
		Short: "List a customer's opportunities, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("customer id", args[0])
			if err != nil {
				return err
			}

			opportunities, err := newClient().ListOpportunities(cmd.Context(), id)
			if err != nil {
				return err
			}
			renderOpportunities(cmd.OutOrStdout(), opportunities)
			return nil
		},
	}
}

func newSaveCmd(newClient func() *client.Client) *cobra.Command {
	var (
		rawID  string
		name   string
		status string
	)

	cmd := &cobra.Command{
		Use:   "save <customer-id>",
		Short: "Create an opportunity, or update it when --id is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID("customer id", args[0])
			if err != nil {
				return err
			}

			o := types.Opportunity{Name: name, Status: types.OpportunityStatus(status)}
			if rawID != "" {
				if o.ID, err = parseID("opportunity id", rawID); err != nil {
					return err
				}
			}

			saved, err := newClient().SaveOpportunity(cmd.Context(), customerID, o)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved opportunity %s\n", saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&rawID, "id", "", "id of an existing opportunity to update")
	cmd.Flags().StringVar(&name, "name", "", "opportunity name (3 to 300 characters)")
	cmd.Flags().StringVar(&status, "status", string(types.StatusNew), "New, ClosedWon or ClosedLost")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newDeleteCmd(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <customer-id> <opportunity-id>",
		Short: "Delete an opportunity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID("customer id", args[0])
			if err != nil {
				return err
			}
			opportunityID, err := parseID("opportunity id", args[1])
			if err != nil {
				return err
			}

			if err := newClient().DeleteOpportunity(cmd.Context(), customerID, opportunityID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted opportunity %s\n", opportunityID)
			return nil
		},
	}
}

func parseID(what, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", what, raw, err)
	}
	return id, nil
}

func renderCustomers(w io.Writer, customers ...types.Customer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Email", "Status", "Created"})
	for _, c := range customers {
		t.AppendRow(table.Row{c.ID, c.Name, c.Email, c.Status, c.Created.Local().Format(time.DateTime)})
	}
	t.Render()
}

func renderOpportunities(w io.Writer, opportunities []types.Opportunity) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Status", "Created"})
	for _, o := range opportunities {
		t.AppendRow(table.Row{o.ID, o.Name, o.Status, o.Created.Local().Format(time.DateTime)})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(opportunities)})
	t.Render()
}
