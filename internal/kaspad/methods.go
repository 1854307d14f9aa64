package kaspad

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// BlockDAGInfo is the minimal chain summary the health endpoint reports.
type BlockDAGInfo struct {
	NetworkName     string `json:"networkName"`
	BlockCount      uint64 `json:"blockCount"`
	HeaderCount     uint64 `json:"headerCount"`
	VirtualDaaScore uint64 `json:"virtualDaaScore"`
}

func (c *Client) GetBlockDAGInfo(ctx context.Context) (*BlockDAGInfo, error) {
	result, err := c.Call(ctx, "getBlockDagInfo", nil)
	if err != nil {
		return nil, err
	}
	var info BlockDAGInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("decoding getBlockDagInfo result: %w", err)
	}
	return &info, nil
}

// ValidateAddress reports whether the node considers address well-formed.
// A missing or non-valid entry in the response counts as invalid.
func (c *Client) ValidateAddress(ctx context.Context, address string) (bool, error) {
	result, err := c.Call(ctx, "validateAddresses", map[string]any{
		"addresses": []string{address},
	})
	if err != nil {
		return false, err
	}
	var out struct {
		Entries []struct {
			Address string `json:"address"`
			IsValid bool   `json:"isValid"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return false, fmt.Errorf("decoding validateAddresses result: %w", err)
	}
	for _, e := range out.Entries {
		if e.Address == address && e.IsValid {
			return true, nil
		}
	}
	return false, nil
}

// VerifyMessage asks the node whether signature signs message for address.
// All cryptography happens node-side.
func (c *Client) VerifyMessage(ctx context.Context, address, signature, message string) (bool, error) {
	result, err := c.Call(ctx, "verifyMessage", map[string]string{
		"address":   address,
		"signature": signature,
		"message":   message,
	})
	if err != nil {
		return false, err
	}
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return false, fmt.Errorf("decoding verifyMessage result: %w", err)
	}
	return out.Valid, nil
}

// RestDAGInfo fetches the chain summary from the public REST API. It is the
// health endpoint's degrade path when RPC is unreachable and carries no
// retry policy of its own.
func (c *Client) RestDAGInfo(ctx context.Context) (*BlockDAGInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restBase+"/info/blockdag", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kaspa REST API returned status %d", resp.StatusCode)
	}

	var info BlockDAGInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
