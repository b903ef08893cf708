package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-market-gate/gate"
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Inspect and seed the feature gate record",
}

var gateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the gate record and whether gated operations are permitted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := newContainer()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		rec, present := c.GateStore().Read(ctx)
		permitted := c.FeatureGate().IsPermitted(ctx, gate.OperationListTags)

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"mode":      c.Config().GateMode,
				"present":   present,
				"record":    rec.Value(),
				"permitted": permitted,
			})
		}

		fmt.Printf("mode:      %s\n", c.Config().GateMode)
		if !present {
			fmt.Println("record:    absent")
		} else {
			fmt.Printf("record:    %v\n", rec.Value())
		}
		fmt.Printf("permitted: %t\n", permitted)
		return nil
	},
}

var gateSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write MARKET_GATE_SEED to the gate record",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := newContainer()
		if err != nil {
			return err
		}
		defer c.Close()

		seeded, err := c.SeedGate(cmd.Context())
		if err != nil {
			return err
		}
		if !seeded {
			return fmt.Errorf("MARKET_GATE_SEED is not set")
		}
		fmt.Println("gate record written")
		return nil
	},
}

func init() {
	gateCmd.AddCommand(gateStatusCmd)
	gateCmd.AddCommand(gateSeedCmd)
}
