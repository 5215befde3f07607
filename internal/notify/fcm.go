package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/respondr-dispatch/internal/models"
)

// FCMNotifier posts offers to the FCM HTTPv1 endpoint as data messages,
// addressed by a per-responder topic.
type FCMNotifier struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewFCMNotifier(endpoint, key string) *FCMNotifier {
	return &FCMNotifier{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (f *FCMNotifier) Offer(responderID string, offer models.AssignmentOffer) error {
	body := map[string]any{
		"message": map[string]any{
			"topic": "responder-" + responderID,
			"data": map[string]any{
				"assignment_id": offer.AssignmentID,
				"request_id":    offer.RequestID,
				"kind":          string(offer.Kind),
			},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, f.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.Key != "" {
		req.Header.Set("Authorization", "Bearer "+f.Key)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("fcm push status %d", resp.StatusCode)
	}
	return nil
}
