package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var errHexLength = errors.New("hex argument has wrong decoded length")

func decodeFixed(s string, n int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	if len(b) != n {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", errHexLength, len(b), n)
	}
	return b, nil
}

func unlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Drive the server half of the unlock handshake",
	}

	cmd.AddCommand(unlockInitiateCmd())
	cmd.AddCommand(unlockStatusCmd())
	cmd.AddCommand(unlockOutcomeCmd())

	return cmd
}

// --- unlock initiate ---

func unlockInitiateCmd() *cobra.Command {
	var (
		entity        string
		beacon        string
		deviceID      string
		beaconNonce   string
		identifierHex string
	)

	cmd := &cobra.Command{
		Use:   "initiate",
		Short: "Call the Initiate endpoint (spec §4.5)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			nonceBytes, err := decodeFixed(beaconNonce, 16)
			if err != nil {
				return fmt.Errorf("--beacon-nonce: %w", err)
			}
			identBytes, err := decodeFixed(identifierHex, 8)
			if err != nil {
				return fmt.Errorf("--identifier: %w", err)
			}
			var nonce [16]byte
			copy(nonce[:], nonceBytes)
			var identifier [8]byte
			copy(identifier[:], identBytes)

			res, err := client.scoped(entity, beacon).Initiate(context.Background(), deviceID, nonce, identifier)
			if err != nil {
				return fmt.Errorf("initiate: %w", err)
			}

			out, err := formatInitiateResult(initiateResult{
				InstanceID:   res.InstanceID,
				ChallengeHex: hex.EncodeToString(res.ChallengeNonce[:]),
			}, outputFormat)
			if err != nil {
				return fmt.Errorf("format result: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity (mall) ID")
	cmd.Flags().StringVar(&beacon, "beacon", "", "beacon ID")
	cmd.Flags().StringVar(&deviceID, "device-id", "", "phone device ID")
	cmd.Flags().StringVar(&beaconNonce, "beacon-nonce", "", "beacon_nonce, 16 bytes hex")
	cmd.Flags().StringVar(&identifierHex, "identifier", "", "beacon boot signature tail, 8 bytes hex")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("beacon")
	_ = cmd.MarkFlagRequired("device-id")
	_ = cmd.MarkFlagRequired("beacon-nonce")
	_ = cmd.MarkFlagRequired("identifier")

	return cmd
}

// --- unlock status ---

func unlockStatusCmd() *cobra.Command {
	var (
		entity          string
		beacon          string
		instance        string
		deviceSignature string
		timestamp       int64
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Call the Status endpoint (spec §4.5)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			sigBytes, err := decodeFixed(deviceSignature, 64)
			if err != nil {
				return fmt.Errorf("--device-signature: %w", err)
			}
			var sig [64]byte
			copy(sig[:], sigBytes)

			now := uint64(timestamp)
			if timestamp == 0 {
				now = uint64(time.Now().Unix())
			}

			res, err := client.scoped(entity, beacon).Status(context.Background(), instance, sig, now)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}

			out, err := formatStatusResult(statusResult{
				ServerSignatureHex: hex.EncodeToString(res.ServerSignature[:]),
				BeaconVerifierHex:  hex.EncodeToString(res.BeaconVerifier[:]),
			}, outputFormat)
			if err != nil {
				return fmt.Errorf("format result: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity (mall) ID")
	cmd.Flags().StringVar(&beacon, "beacon", "", "beacon ID")
	cmd.Flags().StringVar(&instance, "instance", "", "unlock instance ID")
	cmd.Flags().StringVar(&deviceSignature, "device-signature", "", "device_signature, 64 bytes hex")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "unix seconds timestamp (defaults to now)")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("beacon")
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("device-signature")

	return cmd
}

// --- unlock outcome ---

func unlockOutcomeCmd() *cobra.Command {
	var (
		entity   string
		beacon   string
		instance string
		success  bool
		outcome  string
	)

	cmd := &cobra.Command{
		Use:   "outcome",
		Short: "Call the Outcome endpoint (spec §4.5)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := client.scoped(entity, beacon).Outcome(context.Background(), instance, success, outcome); err != nil {
				return fmt.Errorf("outcome: %w", err)
			}
			fmt.Println("outcome recorded")
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity (mall) ID")
	cmd.Flags().StringVar(&beacon, "beacon", "", "beacon ID")
	cmd.Flags().StringVar(&instance, "instance", "", "unlock instance ID")
	cmd.Flags().BoolVar(&success, "success", true, "whether the physical unlock succeeded")
	cmd.Flags().StringVar(&outcome, "outcome", "", "human-readable outcome description")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("beacon")
	_ = cmd.MarkFlagRequired("instance")

	return cmd
}
