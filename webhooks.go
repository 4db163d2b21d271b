/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package claimdesk

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/claimdesk/claimdesk/config"
	"github.com/claimdesk/claimdesk/internal/request"
)

// NewWebhook represents the structure of a webhook notification.
// It includes an event type and associated payload data.
type NewWebhook struct {
	Event   string      `json:"event"` // The event type that triggered the webhook.
	Payload interface{} `json:"data"`  // The data associated with the event.
}

// SendWebhook posts a notification to the configured webhook URL. A
// missing URL disables webhooks silently; delivery failures are returned
// to the caller, who decides whether they are fatal.
func SendWebhook(newWebhook NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	payload, err := request.ToJsonReq(&newWebhook)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", conf.Notification.Webhook.Url, payload)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	var response map[string]interface{}
	resp, err := request.Call(req, &response)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.Warnf("webhook delivery for %s returned status %d", newWebhook.Event, resp.StatusCode)
	}
	return nil
}
