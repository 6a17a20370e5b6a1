package botguard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
)

// TurnstileResult is the subset of the siteverify response the guard acts on.
type TurnstileResult struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// TokenVerifier checks a challenge token with the upstream verifier. The
// production implementation calls the Cloudflare Turnstile siteverify
// endpoint; tests substitute a stub.
type TokenVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (TurnstileResult, error)
}

// TurnstileVerifier calls the siteverify endpoint over HTTP.
type TurnstileVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

// NewTurnstileVerifier builds a verifier. The client timeout bounds the whole
// round trip so a slow upstream cannot stall request handling.
func NewTurnstileVerifier(secret, verifyURL string, client *http.Client) *TurnstileVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &TurnstileVerifier{secret: secret, verifyURL: verifyURL, client: client}
}

func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (TurnstileResult, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TurnstileResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to build siteverify request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return TurnstileResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "siteverify request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TurnstileResult{}, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("siteverify returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return TurnstileResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to read siteverify response")
	}
	var result TurnstileResult
	if err := json.Unmarshal(body, &result); err != nil {
		return TurnstileResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "siteverify response is malformed")
	}
	return result, nil
}
