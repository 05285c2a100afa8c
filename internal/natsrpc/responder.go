// Package natsrpc answers stat requests received over NATS request/reply.
package natsrpc

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"transit-router/internal/requests"
)

const QueueGroup = "transit-router"

type ResponderMetrics interface {
	NATSRequestInc()
	NATSReplyErrInc()
	ReplyObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// StatHandler answers one decoded stat request.
type StatHandler interface {
	Handle(req requests.StatRequest) any
}

type Responder struct {
	nc          *nats.Conn
	sub         *nats.Subscription
	handler     StatHandler
	logRequests bool
	metrics     ResponderMetrics
}

func Connect(url string, m ResponderMetrics) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("transit-router"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
}

// NewResponder queue-subscribes to subject on an established connection.
func NewResponder(nc *nats.Conn, subject string, h StatHandler, logRequests bool, m ResponderMetrics) (*Responder, error) {
	r := &Responder{nc: nc, handler: h, logRequests: logRequests, metrics: m}
	sub, err := nc.QueueSubscribe(subject, QueueGroup, r.onMessage)
	if err != nil {
		return nil, err
	}
	r.sub = sub
	if m != nil && nc.IsConnected() {
		m.NATSSetConnected(true)
	}
	log.Printf("nats listening subject=%s queue=%s", subject, QueueGroup)
	return r, nil
}

func (r *Responder) onMessage(msg *nats.Msg) {
	start := time.Now()
	if r.metrics != nil {
		r.metrics.NATSRequestInc()
	}
	if r.logRequests {
		log.Printf("nats request subject=%s reply=%s", msg.Subject, msg.Reply)
	}
	b, err := json.Marshal(r.answer(msg.Data))
	if err == nil {
		err = msg.Respond(b)
	}
	if err != nil {
		log.Printf("nats reply subject=%s: %v", msg.Subject, err)
	}
	if r.metrics != nil {
		r.metrics.ReplyObserve(time.Since(start))
		if err != nil {
			r.metrics.NATSReplyErrInc()
		}
	}
}

// answer decodes and answers one payload. Undecodable payloads get an error
// message instead of a stat response.
func (r *Responder) answer(data []byte) any {
	var req requests.StatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return requests.ErrorResponse{ErrorMessage: "invalid request: " + err.Error()}
	}
	if err := requests.ValidateStat(req); err != nil {
		return requests.ErrorResponse{RequestID: req.ID, ErrorMessage: err.Error()}
	}
	return r.handler.Handle(req)
}

// Close drains the subscription; the connection is left to its owner.
func (r *Responder) Close() {
	if r.sub != nil {
		_ = r.sub.Drain()
	}
}
