package client

import (
	"context"
	"encoding/json"
	"errors"

	"crudkit/internal/queue"

	"github.com/sirupsen/logrus"
)

// Mutations returns the offline mutation queue. Mutations recorded with
// the QueueOffline option are replayed through Post whenever the drain
// timer fires and the backend answers again. The queue is started by the
// application lifecycle, not by the client itself.
func (c *Client) Mutations() *queue.Queue[queue.Envelope] {
	return c.mutations
}

// maybeQueue records a failed mutation for later replay when the options
// ask for it and the failure was transport-level. Server rejections are
// never queued; replaying them cannot change the outcome.
func (c *Client) maybeQueue(o *CRUDRequestOptions, endpoint string, params Params, err error) {
	if !o.QueueOffline {
		return
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return
	}
	if apiErr.Kind != KindTransport && apiErr.Kind != KindConnectivity {
		return
	}

	body, encodeErr := json.Marshal(params)
	if encodeErr != nil {
		logrus.WithError(encodeErr).WithField("endpoint", endpoint).Warn("Could not encode mutation for replay")
		return
	}
	c.mutations.Push(queue.NewEnvelope(endpoint, body))
	logrus.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"queued":   c.mutations.Len(),
	}).Info("Mutation queued for replay")
}

// replayMutations drains queued mutations through Post, front to back. A
// transport-level failure stops the drain until the next tick so ordering
// is preserved; a server rejection or malformed item is dropped.
func (c *Client) replayMutations(ctx context.Context, q *queue.Queue[queue.Envelope]) {
	for ctx.Err() == nil {
		env, ok := q.Peek()
		if !ok {
			return
		}

		var params Params
		if err := json.Unmarshal(env.Body, &params); err != nil {
			logrus.WithError(err).WithField("id", env.ID).Warn("Dropping malformed queued mutation")
			q.Pop()
			continue
		}

		opts := DefaultRequestOptions()
		opts.ShowLoader = false
		opts.ShowErrors = false

		_, err := c.Post(ctx, env.Kind, params, opts, nil)
		if err == nil {
			logrus.WithFields(logrus.Fields{"id": env.ID, "kind": env.Kind}).Info("Replayed queued mutation")
			q.Pop()
			continue
		}

		if IsTransport(err) || IsConnectivity(err) {
			return
		}
		logrus.WithError(err).WithFields(logrus.Fields{"id": env.ID, "kind": env.Kind}).Warn("Server rejected queued mutation, dropping it")
		q.Pop()
	}
}
