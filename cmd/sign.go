package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/markjakearzadon/givepay-gobackend/internal/paystack"
)

func signCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Print the x-paystack-signature for a webhook body",
		Long: `Compute the HMAC-SHA512 signature Paystack would send for a body.
Reads the file argument, or stdin when omitted. Useful for replaying
webhooks against a local server:

  donations sign event.json
  curl -H "x-paystack-signature: $(donations sign event.json)" \
       --data-binary @event.json localhost:8080/donations/webhook`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("PAYSTACK_SECRET_KEY")
			}
			if secret == "" {
				return errors.New("secret required: pass --secret or set PAYSTACK_SECRET_KEY")
			}

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			body, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), paystack.Sign(body, secret))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "Paystack secret key (default $PAYSTACK_SECRET_KEY)")
	return cmd
}
