// Package httpclient implements clientpipeline.ServerClient over
// navign-server's HTTP API (spec §6), the network half left abstract by
// internal/clientpipeline so its tests can substitute a fake.
package httpclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/clientpipeline"
)

// Client calls the three literal unlock routes from spec §6 against a
// navign-server instance identified by baseURL.
type Client struct {
	baseURL  string
	entityID string
	beaconID string
	token    string
	http     *http.Client
}

// New returns a Client scoped to one entity/beacon pair. token is sent as
// a bearer credential on every request; entityID and beaconID are path
// components on Initiate.
func New(baseURL, entityID, beaconID, token string) *Client {
	return &Client{
		baseURL:  baseURL,
		entityID: entityID,
		beaconID: beaconID,
		token:    token,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

var _ clientpipeline.ServerClient = (*Client)(nil)

type initiateBody struct {
	DeviceID string `json:"device_id"`
	Payload  string `json:"payload"`
}

type initiateResponse struct {
	InstanceID   string `json:"instance_id"`
	ChallengeHex string `json:"challenge_hex"`
}

// Initiate implements clientpipeline.ServerClient.
func (c *Client) Initiate(ctx context.Context, deviceID string, beaconNonce [16]byte, identifier [8]byte) (clientpipeline.InitiateResult, error) {
	payload := append(append([]byte(nil), beaconNonce[:]...), identifier[:]...)

	body := initiateBody{
		DeviceID: deviceID,
		Payload:  base64.StdEncoding.EncodeToString(payload),
	}

	path := fmt.Sprintf("/api/entities/%s/beacons/%s/unlocker",
		url.PathEscape(c.entityID), url.PathEscape(c.beaconID))

	var resp initiateResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return clientpipeline.InitiateResult{}, err
	}

	challengeBytes, err := decodeHex16(resp.ChallengeHex)
	if err != nil {
		return clientpipeline.InitiateResult{}, fmt.Errorf("httpclient: decode challenge_hex: %w", err)
	}

	return clientpipeline.InitiateResult{
		InstanceID:     resp.InstanceID,
		ChallengeNonce: challengeBytes,
	}, nil
}

type statusBody struct {
	Payload string `json:"payload"`
}

type statusResponse struct {
	Blob string `json:"blob"`
}

// Status implements clientpipeline.ServerClient.
func (c *Client) Status(ctx context.Context, instanceID string, deviceSignature [64]byte, now uint64) (clientpipeline.StatusResult, error) {
	var timestamp [8]byte
	binary.BigEndian.PutUint64(timestamp[:], now)
	payload := append(append([]byte(nil), deviceSignature[:]...), timestamp[:]...)

	body := statusBody{Payload: base64.StdEncoding.EncodeToString(payload)}

	path := fmt.Sprintf("/api/entities/%s/beacons/%s/unlocker/%s/status",
		url.PathEscape(c.entityID), url.PathEscape(c.beaconID), url.PathEscape(instanceID))

	var resp statusResponse
	if err := c.do(ctx, http.MethodPut, path, body, &resp); err != nil {
		return clientpipeline.StatusResult{}, err
	}

	blob, err := base64.StdEncoding.DecodeString(resp.Blob)
	if err != nil {
		return clientpipeline.StatusResult{}, fmt.Errorf("httpclient: decode status blob: %w", err)
	}
	if len(blob) != 72 {
		return clientpipeline.StatusResult{}, fmt.Errorf("httpclient: status blob length = %d, want 72", len(blob))
	}

	var result clientpipeline.StatusResult
	copy(result.ServerSignature[:], blob[:64])
	copy(result.BeaconVerifier[:], blob[64:])
	return result, nil
}

type outcomeBody struct {
	Success bool   `json:"success"`
	Outcome string `json:"outcome"`
}

// Outcome implements clientpipeline.ServerClient.
func (c *Client) Outcome(ctx context.Context, instanceID string, success bool, outcome string) error {
	body := outcomeBody{Success: success, Outcome: outcome}

	path := fmt.Sprintf("/api/entities/%s/beacons/%s/unlocker/%s/outcome",
		url.PathEscape(c.entityID), url.PathEscape(c.beaconID), url.PathEscape(instanceID))

	return c.do(ctx, http.MethodPut, path, body, nil)
}

type errorBody struct {
	Error string `json:"error"`
}

// do performs one JSON request/response round trip and decodes an error
// envelope on non-2xx status, mirroring internal/httpapi's writeError
// shape.
func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return fmt.Errorf("httpclient: encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("httpclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb errorBody
		if decodeErr := json.NewDecoder(resp.Body).Decode(&eb); decodeErr == nil && eb.Error != "" {
			return fmt.Errorf("httpclient: %s %s: server returned %d: %s", method, path, resp.StatusCode, eb.Error)
		}
		return fmt.Errorf("httpclient: %s %s: server returned %d", method, path, resp.StatusCode)
	}

	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("httpclient: decode response: %w", err)
	}
	return nil
}

func decodeHex16(s string) ([16]byte, error) {
	var out [16]byte
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(decoded) != 16 {
		return out, fmt.Errorf("expected 16 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}
