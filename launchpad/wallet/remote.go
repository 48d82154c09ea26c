package wallet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RemoteSigner forwards signing to an external signer endpoint, such as a
// browser wallet bridge or a custody service.
type RemoteSigner struct {
	address    string
	signerURL  string
	httpClient *http.Client
	log        *zap.Logger
}

type signRequest struct {
	Address     string `json:"address"`
	Transaction string `json:"transaction"`
}

// NewRemoteSigner creates a signer for address. Signing waits on a human, so
// the HTTP timeout is generous.
func NewRemoteSigner(address, signerURL string, log *zap.Logger) *RemoteSigner {
	if log == nil {
		log = zap.NewNop()
	}
	return &RemoteSigner{
		address:   address,
		signerURL: signerURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		log: log,
	}
}

func (r *RemoteSigner) Address() string { return r.address }

func (r *RemoteSigner) Connected() bool { return r.address != "" && r.signerURL != "" }

// SignTransaction posts the base64 unsigned transaction and normalises the
// reply.
func (r *RemoteSigner) SignTransaction(ctx context.Context, unsigned []byte) (Signed, error) {
	body, err := json.Marshal(signRequest{
		Address:     r.address,
		Transaction: base64.StdEncoding.EncodeToString(unsigned),
	})
	if err != nil {
		return Signed{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.signerURL, bytes.NewReader(body))
	if err != nil {
		return Signed{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Signed{}, fmt.Errorf("signer request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Signed{}, err
	}

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		_ = json.Unmarshal(raw, &errResp)
		errMsg, _ := errResp["error"].(string)
		if errMsg == "" {
			errMsg = fmt.Sprintf("signer returned %d", resp.StatusCode)
		}
		r.log.Warn("signer refused transaction", zap.Int("status", resp.StatusCode), zap.String("error", errMsg))
		if IsUserRejection(fmt.Errorf("%s", errMsg)) {
			return Signed{}, fmt.Errorf("%w: %s", ErrUserRejected, errMsg)
		}
		return Signed{}, fmt.Errorf("sign failed: %s", errMsg)
	}

	return NormalizeSignResult(raw)
}
