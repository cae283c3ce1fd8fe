package avail

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/ethereum/go-ethereum/common"
)

type relaySubmitResponse struct {
	SubmissionID string `json:"submission_id"`
}

type relaySubmissionInfo struct {
	Submission *struct {
		BlockHash      *string `json:"block_hash"`
		ExtrinsicIndex *uint32 `json:"extrinsic_index"`
	} `json:"submission"`
}

// relaySubmit hands the blob to the gas relay, which pays for and submits
// the extrinsic on our behalf.
func (a *Adapter) relaySubmit(ctx context.Context, data []byte) (string, error) {
	uri := fmt.Sprintf("%s/user/submit_raw_data?token=ethereum", strings.TrimRight(a.cfg.GasRelayAPIURL, "/"))
	body, status, err := httpRequest(ctx, a.http, http.MethodPost, uri, data, map[string]string{
		"Content-Type":  "text/plain",
		"Authorization": a.cfg.GasRelayAPIKey,
	})
	if err != nil {
		return "", err
	}
	if !isSuccess(status) {
		return "", statusError("avail relay submit", status, body)
	}

	var res relaySubmitResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", daerr.Wrap("avail relay submit", fmt.Errorf("failed to decode relay response: %w", err))
	}
	if res.SubmissionID == "" {
		return "", daerr.Terminalf("avail relay submit", "relay response has no submission id: %s", string(body))
	}
	a.log.Infof("Blob of %d bytes accepted by gas relay, submission id %s", len(data), res.SubmissionID)
	return res.SubmissionID, nil
}

// relayPoller asks the gas relay where a submission ended up.
type relayPoller struct {
	a            *Adapter
	submissionID string
}

func (p *relayPoller) Poll(ctx context.Context) (BlobID, bool, error) {
	uri := fmt.Sprintf("%s/user/get_submission_info?submission_id=%s",
		strings.TrimRight(p.a.cfg.GasRelayAPIURL, "/"), url.QueryEscape(p.submissionID))
	body, status, err := httpRequest(ctx, p.a.http, http.MethodGet, uri, nil, map[string]string{
		"Authorization": p.a.cfg.GasRelayAPIKey,
	})
	if err != nil {
		return BlobID{}, false, err
	}
	if !isSuccess(status) {
		return BlobID{}, false, statusError("avail relay status", status, body)
	}

	var info relaySubmissionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return BlobID{}, false, daerr.Wrap("avail relay status", fmt.Errorf("failed to decode submission info: %w", err))
	}
	if info.Submission == nil || info.Submission.BlockHash == nil || *info.Submission.BlockHash == "" {
		return BlobID{}, false, nil
	}
	if info.Submission.ExtrinsicIndex == nil {
		return BlobID{}, false, daerr.Terminalf("avail relay status",
			"submission %s has block hash %s but no extrinsic index", p.submissionID, *info.Submission.BlockHash)
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(*info.Submission.BlockHash, "0x"))
	if err != nil || len(raw) != common.HashLength {
		return BlobID{}, false, daerr.Terminalf("avail relay status", "invalid block hash %q", *info.Submission.BlockHash)
	}
	id := BlobID{BlockHash: common.BytesToHash(raw), ExtrinsicIndex: *info.Submission.ExtrinsicIndex}
	p.a.log.Infof("Gas relay submission %s included as %s", p.submissionID, id)
	return id, true, nil
}
