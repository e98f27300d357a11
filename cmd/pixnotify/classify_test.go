package main

import (
	"bytes"
	"strings"
	"testing"
)

func runClassify(t *testing.T, args ...string) string {
	t.Helper()
	cmd := classifyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("classify %v: %v", args, err)
	}
	return out.String()
}

func TestClassifyCommand(t *testing.T) {
	t.Setenv("TEMPLATE_COBRANCA", "COB_TEST")

	cases := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "charge without status",
			args: []string{"--event-type", "CHARGE"},
			want: []string{"notify:   true", "event:    COBRANCA", "template: COB_TEST"},
		},
		{
			name: "cancelled change",
			args: []string{"--event-type", "ALTERACAO", "--status", "cancelada"},
			want: []string{"event:    OPTOUT", "template: PIXAUTO_ALTERACAO"},
		},
		{
			name: "payment method fallback",
			args: []string{"--payment-method", "PIX_AUTOMATICO_PAGAMENTO"},
			want: []string{"notify:   false", "event:    PAGAMENTO", "template: PIXAUTO_PAGAMENTO"},
		},
		{
			name: "unknown signals use the payment template",
			args: []string{"--event-type", "REFUND"},
			want: []string{"event:    (none)", "template: PIXAUTO_PAGAMENTO"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := runClassify(t, tc.args...)
			for _, w := range tc.want {
				if !strings.Contains(out, w) {
					t.Fatalf("expected %q in output:\n%s", w, out)
				}
			}
		})
	}
}

func TestProcessRequiresIdentifier(t *testing.T) {
	cmd := processCmd()
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without identifier")
	}
}
