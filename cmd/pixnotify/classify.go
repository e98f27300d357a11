package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/pixauto-notifier/internal/classifier"
	"github.com/example/pixauto-notifier/internal/config"
	"github.com/example/pixauto-notifier/internal/models"
)

func classifyCmd() *cobra.Command {
	var signals models.EventSignals
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the canonical event and template for callback signals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			templates, err := config.LoadTemplates()
			if err != nil {
				return err
			}
			c := classifier.New(templates)
			out := cmd.OutOrStdout()

			var event *models.CanonicalEvent
			if e, ok := c.Classify(signals); ok {
				event = &e
			} else if signals.EventType == "" && signals.PaymentMethod != "" {
				if e, ok := c.MapPaymentTypeToEvent(signals.PaymentMethod); ok {
					event = &e
				}
			}

			fmt.Fprintf(out, "notify:   %t\n", c.ShouldNotify(signals.EventType))
			if event != nil {
				fmt.Fprintf(out, "event:    %s\n", *event)
			} else {
				fmt.Fprintln(out, "event:    (none)")
			}
			fmt.Fprintf(out, "template: %s\n", c.TemplateFor(event))
			return nil
		},
	}

	cmd.Flags().StringVar(&signals.EventType, "event-type", "", "Callback event type (e.g. CHARGE, PAGAMENTO)")
	cmd.Flags().StringVar(&signals.Status, "status", "", "Callback status")
	cmd.Flags().StringVar(&signals.PaymentMethod, "payment-method", "", "Payment method family")
	cmd.Flags().StringVar(&signals.RecurrenceID, "recurrence-id", "", "Recurrence identifier")
	return cmd
}
