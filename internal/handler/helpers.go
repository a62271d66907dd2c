package handler

import (
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mycafe-pos/api/internal/events"
)

// Broadcaster pushes change signals to connected staff devices.
// Satisfied by *ws.Hub; nil-safe via the notify helper.
type Broadcaster interface {
	NotifyChanged(entity string)
}

// Publisher queues order-lifecycle events for Kafka.
// Satisfied by *events.Producer.
type Publisher interface {
	Publish(topic, key string, env events.Envelope)
}

func notify(b Broadcaster, entity string) {
	if b != nil {
		b.NotifyChanged(entity)
	}
}

func publish(p Publisher, topic, key string, env events.Envelope) {
	if p != nil {
		p.Publish(topic, key, env)
	}
}

// parsePagination reads limit/offset query params with a 20-row default and
// a 100-row cap.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset = 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// textFilter turns an optional query param into a nullable SQL filter.
func textFilter(r *http.Request, name string) pgtype.Text {
	if s := r.URL.Query().Get(name); s != "" {
		return pgtype.Text{String: s, Valid: true}
	}
	return pgtype.Text{}
}

func textToPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func ptrToText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
