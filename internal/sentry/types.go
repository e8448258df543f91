package sentry

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionStats is one row of the discover events endpoint with
// transaction aggregates. The parenthesised keys are Sentry's literal
// aggregate field names.
type TransactionStats struct {
	Transaction string  `json:"transaction"`
	Project     string  `json:"project"`
	Op          string  `json:"transaction.op"`
	HTTPMethod  string  `json:"http.method"`
	TPM         float64 `json:"tpm()"`
	P50         float64 `json:"p50()"`
	P95         float64 `json:"p95()"`
	FailureRate float64 `json:"failure_rate()"`
	Apdex       float64 `json:"apdex()"`
	UserMisery  float64 `json:"user_misery()"`
}

// TransactionEvent is one recorded occurrence of a transaction.
// Duration is in seconds, as the discover endpoint reports it.
type TransactionEvent struct {
	ID          string  `json:"id"`
	Timestamp   string  `json:"timestamp"`
	Transaction string  `json:"transaction"`
	Duration    float64 `json:"transaction.duration"`
	Op          string  `json:"transaction.op"`
	HTTPMethod  string  `json:"http.method"`
}

// eventsEnvelope wraps discover endpoint responses.
type eventsEnvelope[T any] struct {
	Data []T `json:"data"`
}

// Event is the detail payload for a single event (transaction or
// error). Spans and exceptions live inside Entries.
type Event struct {
	ID             string  `json:"id"`
	EventID        string  `json:"eventID"`
	Title          string  `json:"title"`
	Transaction    string  `json:"transaction"`
	Type           string  `json:"type"`
	StartTimestamp float64 `json:"startTimestamp"`
	EndTimestamp   float64 `json:"endTimestamp"`
	DateReceived   string  `json:"dateReceived"`
	DateCreated    string  `json:"dateCreated"`
	Entries        []Entry `json:"entries"`
}

// Entry is one typed section of an event payload.
type Entry struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Span is one operation recorded inside a transaction. Timestamps are
// Unix seconds.
type Span struct {
	SpanID         string            `json:"span_id"`
	ParentSpanID   string            `json:"parent_span_id"`
	Op             string            `json:"op"`
	Description    string            `json:"description"`
	StartTimestamp float64           `json:"start_timestamp"`
	Timestamp      float64           `json:"timestamp"`
	Tags           map[string]string `json:"tags"`
}

// DurationMS returns the span duration in milliseconds, zero when
// either timestamp is missing.
func (s Span) DurationMS() float64 {
	if s.StartTimestamp == 0 || s.Timestamp == 0 {
		return 0
	}
	return (s.Timestamp - s.StartTimestamp) * 1000
}

// Spans extracts the span list from the event's entries.
func (e *Event) Spans() ([]Span, error) {
	for _, entry := range e.Entries {
		if entry.Type != "spans" {
			continue
		}
		var spans []Span
		if err := json.Unmarshal(entry.Data, &spans); err != nil {
			return nil, fmt.Errorf("decoding spans entry: %w", err)
		}
		return spans, nil
	}
	return nil, nil
}

// TotalDurationMS returns the event's wall time in milliseconds.
func (e *Event) TotalDurationMS() float64 {
	if e.StartTimestamp == 0 || e.EndTimestamp == 0 {
		return 0
	}
	return (e.EndTimestamp - e.StartTimestamp) * 1000
}

// ExceptionValue is one exception from an error event, with its stack.
type ExceptionValue struct {
	Type       string      `json:"type"`
	Value      string      `json:"value"`
	Mechanism  *Mechanism  `json:"mechanism"`
	Stacktrace *Stacktrace `json:"stacktrace"`
}

// Mechanism describes how an exception was captured.
type Mechanism struct {
	Handled *bool `json:"handled"`
}

// Stacktrace is an ordered frame list, outermost first.
type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

// Frame is one stack frame of an exception.
type Frame struct {
	Filename string `json:"filename"`
	Function string `json:"function"`
	LineNo   int    `json:"lineNo"`
	InApp    bool   `json:"inApp"`
}

// exceptionData is the payload of an "exception" entry.
type exceptionData struct {
	Values []ExceptionValue `json:"values"`
}

// Exceptions extracts the exception values from the event's entries.
func (e *Event) Exceptions() ([]ExceptionValue, error) {
	for _, entry := range e.Entries {
		if entry.Type != "exception" {
			continue
		}
		var data exceptionData
		if err := json.Unmarshal(entry.Data, &data); err != nil {
			return nil, fmt.Errorf("decoding exception entry: %w", err)
		}
		return data.Values, nil
	}
	return nil, nil
}

// Issue is a grouped error as returned by the issues endpoints. Count
// is a string in Sentry's JSON.
type Issue struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Culprit   string       `json:"culprit"`
	Permalink string       `json:"permalink"`
	Level     string       `json:"level"`
	Status    string       `json:"status"`
	Priority  string       `json:"priority"`
	Platform  string       `json:"platform"`
	Type      string       `json:"type"`
	Count     string       `json:"count"`
	UserCount int          `json:"userCount"`
	FirstSeen time.Time    `json:"firstSeen"`
	LastSeen  time.Time    `json:"lastSeen"`
	Project   IssueProject `json:"project"`
	Tags      []IssueTag   `json:"tags,omitempty"`
}

// IssueProject identifies the project an issue belongs to.
type IssueProject struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// IssueTag is one aggregated tag on an issue detail payload.
type IssueTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	Period string
	Limit  int
	Sort   string
	Query  string
}

// EventFilter narrows ListTransactionEvents.
type EventFilter struct {
	Period string
	Limit  int
}

// IssueFilter narrows ListIssues.
type IssueFilter struct {
	Period string
	Limit  int
	Query  string
}
