package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/pixauto-notifier/internal/config"
	"github.com/example/pixauto-notifier/internal/models"
	"github.com/example/pixauto-notifier/internal/util"
)

type processReport struct {
	Identifier string                  `json:"identifier"`
	Dispatched bool                    `json:"dispatched"`
	Outcome    string                  `json:"outcome"`
	Reason     string                  `json:"reason,omitempty"`
	Event      string                  `json:"event,omitempty"`
	Template   string                  `json:"template,omitempty"`
	Document   string                  `json:"document,omitempty"`
	Contacts   *models.ContactChannels `json:"contacts,omitempty"`
	Deliveries []models.DispatchResult `json:"deliveries,omitempty"`
}

func processCmd() *cobra.Command {
	var signals models.EventSignals
	cmd := &cobra.Command{
		Use:   "process <identifier>",
		Short: "Run the notification pipeline once for a transaction identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := setup(cfg)
			if err != nil {
				return err
			}
			pipe, err := buildPipeline(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer pipe.Close()

			res := pipe.orchestrator.Run(cmd.Context(), args[0], signals)

			report := processReport{
				Identifier: args[0],
				Dispatched: res.Dispatched,
				Outcome:    res.Outcome,
				Reason:     res.Reason,
				Template:   res.Template,
				Deliveries: res.Deliveries,
			}
			if res.Event != nil {
				report.Event = res.Event.String()
			}
			if res.Identity != nil {
				contacts := res.Identity.Contacts
				report.Contacts = &contacts
				if res.Identity.HasDocument() {
					report.Document = util.MaskDocument(res.Identity.Document.Value)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !res.Dispatched {
				return fmt.Errorf("no notification sent for %s: %s", args[0], res.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&signals.EventType, "event-type", "PAGAMENTO", "Callback event type")
	cmd.Flags().StringVar(&signals.Status, "status", "", "Callback status")
	cmd.Flags().StringVar(&signals.PaymentMethod, "payment-method", "", "Payment method family")
	cmd.Flags().StringVar(&signals.RecurrenceID, "recurrence-id", "", "Recurrence identifier")
	return cmd
}
