package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioGateway sends SMS through the Twilio Messages REST API.
type TwilioGateway struct {
	accountSID string
	authToken  string
	fromPhone  string
	endpoint   string
	client     *http.Client
}

// NewTwilioGateway returns a gateway posting to the given API endpoint
// (normally "https://api.twilio.com"; tests point it at a local server).
func NewTwilioGateway(accountSID, authToken, fromPhone, endpoint string) *TwilioGateway {
	return &TwilioGateway{
		accountSID: accountSID,
		authToken:  authToken,
		fromPhone:  fromPhone,
		endpoint:   strings.TrimRight(endpoint, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message and returns the Twilio message SID.
func (g *TwilioGateway) Send(ctx context.Context, phoneNumber, text string) (string, error) {

	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("From", g.fromPhone)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.endpoint, g.accountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error building sms request: %w", err)
	}
	req.SetBasicAuth(g.accountSID, g.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}

	var body struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("error decoding sms response: %w", err)
	}

	return body.SID, nil
}
