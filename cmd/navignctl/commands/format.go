package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/indoor-mall-nav/navign-sub000/internal/httpclient"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

type initiateResult struct {
	InstanceID   string `json:"instance_id"`
	ChallengeHex string `json:"challenge_hex"`
}

func formatInitiateResult(r initiateResult, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONBody(r)
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Instance ID:\t%s\n", r.InstanceID)
		fmt.Fprintf(w, "Challenge Nonce:\t%s\n", r.ChallengeHex)
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

type statusResult struct {
	ServerSignatureHex string `json:"server_signature"`
	BeaconVerifierHex  string `json:"beacon_verifier"`
}

func formatStatusResult(r statusResult, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONBody(r)
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Server Signature:\t%s\n", r.ServerSignatureHex)
		fmt.Fprintf(w, "Beacon Verifier:\t%s\n", r.BeaconVerifierHex)
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatRouteResult(r httpclient.RouteResult, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONBody(r)
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		for _, s := range r.Steps {
			fmt.Fprintf(w, "Area:\t%s\tvia\t%s\n", s.AreaID, s.ConnectionID)
		}
		for _, ins := range r.Instructions {
			fmt.Fprintf(w, "%s:\t%s\t(%s, %.2f)\n", ins.Kind, ins.AreaID, ins.ConnectionKind, ins.Distance)
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatPathResult(r httpclient.PathResult, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONBody(r)
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		for _, wp := range r.Waypoints {
			fmt.Fprintf(w, "Waypoint:\t%.2f, %.2f\n", wp.X, wp.Y)
		}
		for _, ins := range r.Instructions {
			fmt.Fprintf(w, "%s:\t%.2f, %.2f\t(%.2f)\n", ins.Kind, ins.X, ins.Y, ins.Distance)
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatJSONBody(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(b) + "\n", nil
}
