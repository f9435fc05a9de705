package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"chatseal/internal/domain"
)

// Subscribe streams messages posted to the conversation and calls fn for
// each, in arrival order. It returns when ctx is cancelled (with nil) or
// the stream ends.
func (c *HTTP) Subscribe(ctx context.Context, id domain.ConversationID, fn func(domain.Message)) error {
	u := c.Base + "/conversations/" + url.PathEscape(string(id)) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := c.Stream
	if client == nil {
		client = &http.Client{Transport: c.HTTP.Transport}
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(req, resp)
	}

	log := c.Log.WithField("conversation_id", id)
	log.Debug("relay: subscribed")

	var data strings.Builder
	dispatch := func() {
		defer data.Reset()
		if data.Len() == 0 {
			return
		}
		var msg domain.Message
		if err := json.Unmarshal([]byte(data.String()), &msg); err != nil {
			log.WithError(err).Warn("relay: undecodable event")
			return
		}
		if err := msg.Validate(); err != nil {
			log.WithError(err).Warn("relay: skipping invalid event")
			return
		}
		fn(msg)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			dispatch()
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	dispatch()

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("relay stream %s: %w", id, err)
	}
	return nil
}
