package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

// ErrInvalidClientConfig reports an unusable verification client setup.
var ErrInvalidClientConfig = errors.New("invalid verify client config")

const (
	defaultTimeout  = 5 * time.Second
	contentTypeJSON = "application/json"

	operationVerify   = "verify"
	subjectAccessCode = "access_code"
	codeEncodeFailed  = "encode_failed"
	codeRequestFailed = "request_failed"
)

// Client performs the access-code round trip against the external
// verification endpoint. At most one request is in flight per wallet;
// submissions for a wallet with one pending are dropped as duplicates
// without touching the wire. Other wallets proceed independently.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	inFlight   sync.Map
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		if httpClient != nil {
			client.httpClient = httpClient
		}
	}
}

// WithLogger wires a zap logger for transport diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// NewClient wires a verification client for the endpoint URL.
func NewClient(endpoint string, options ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty endpoint", ErrInvalidClientConfig)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: endpoint must be an absolute url", ErrInvalidClientConfig)
	}
	client := &Client{
		endpoint:   trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client, nil
}

type verificationRequest struct {
	Code          string `json:"code"`
	WalletAddress string `json:"walletAddress"`
}

type verificationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Verify submits the normalized code for the wallet and classifies the
// outcome. Transport and parse failures downgrade to an unavailable result
// instead of erroring, and nothing is retried automatically.
func (client *Client) Verify(ctx context.Context, code betflow.AccessCode, wallet betflow.WalletAddress) (betflow.VerificationResult, error) {
	if _, pending := client.inFlight.LoadOrStore(wallet.String(), struct{}{}); pending {
		return betflow.VerificationResult{
			Outcome: betflow.VerificationDuplicate,
			Message: betflow.MessageVerificationPending,
		}, nil
	}
	defer client.inFlight.Delete(wallet.String())

	payload, err := json.Marshal(verificationRequest{Code: code.String(), WalletAddress: wallet.String()})
	if err != nil {
		return betflow.VerificationResult{}, betflow.WrapError(operationVerify, subjectAccessCode, codeEncodeFailed, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(payload))
	if err != nil {
		return betflow.VerificationResult{}, betflow.WrapError(operationVerify, subjectAccessCode, codeRequestFailed, err)
	}
	request.Header.Set("Content-Type", contentTypeJSON)

	response, err := client.httpClient.Do(request)
	if err != nil {
		client.logger.Warn("verification transport failure", zap.Error(err))
		return unavailableResult(), nil
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusInternalServerError {
		client.logger.Warn("verification endpoint failure", zap.Int("status", response.StatusCode))
		return unavailableResult(), nil
	}
	var decoded verificationResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		client.logger.Warn("verification response unreadable", zap.Error(err))
		return unavailableResult(), nil
	}
	if decoded.Success && response.StatusCode < http.StatusMultipleChoices {
		return betflow.VerificationResult{
			Outcome: betflow.VerificationVerified,
			Message: betflow.MessageVerificationOK,
		}, nil
	}
	message := strings.TrimSpace(decoded.Error)
	if message == "" {
		message = betflow.MessageCodeRejected
	}
	return betflow.VerificationResult{
		Outcome: betflow.VerificationRejected,
		Message: message,
	}, nil
}

func unavailableResult() betflow.VerificationResult {
	return betflow.VerificationResult{
		Outcome: betflow.VerificationUnavailable,
		Message: betflow.MessageVerifierUnavailable,
	}
}
