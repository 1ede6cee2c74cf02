package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

// ClientRecord is the storage shape of a client. Money travels as a decimal
// string and the template as JSON.
type ClientRecord struct {
	ID             string
	Name           string
	Phone          string
	Plan           string
	BillingDay     int
	Fee            string
	Template       string
	Active         bool
	ConsultingOnly bool
	UpdatedAt      time.Time
}

// SlotRecord is one template entry inside ClientRecord.Template.
type SlotRecord struct {
	Weekday int    `json:"weekday"`
	Time    string `json:"time"`
}

// OccurrenceRecord is the storage shape of an occurrence. Dates travel as
// YYYY-MM-DD, times as HH:MM and tags as a JSON array.
type OccurrenceRecord struct {
	ID              string
	ClientID        string
	ClientName      string
	Date            string
	Time            string
	DurationMinutes int
	Completed       bool
	Tags            string
	Notes           string
	SourceKey       string
	AdHoc           bool
	UpdatedAt       time.Time
}

// NewClientRecord encodes a client for storage.
func NewClientRecord(client model.Client, updatedAt time.Time) (ClientRecord, error) {
	slots := make([]SlotRecord, 0, len(client.Template))
	for _, slot := range client.Template {
		slots = append(slots, SlotRecord{Weekday: int(slot.Weekday), Time: slot.Time.String()})
	}
	template, err := json.Marshal(slots)
	if err != nil {
		return ClientRecord{}, fmt.Errorf("%w: encode template: %v", ErrConstraintViolation, err)
	}
	return ClientRecord{
		ID:             client.ID,
		Name:           client.Name,
		Phone:          client.Phone,
		Plan:           string(client.Plan),
		BillingDay:     client.BillingDay,
		Fee:            client.Fee.StringFixed(2),
		Template:       string(template),
		Active:         client.Active,
		ConsultingOnly: client.ConsultingOnly,
		UpdatedAt:      updatedAt.UTC(),
	}, nil
}

// Client decodes the record.
func (r ClientRecord) Client() (model.Client, error) {
	fee := decimal.Zero
	if r.Fee != "" {
		parsed, err := decimal.NewFromString(r.Fee)
		if err != nil {
			return model.Client{}, fmt.Errorf("%w: client %s fee %q", ErrConstraintViolation, r.ID, r.Fee)
		}
		fee = parsed
	}

	var slots []SlotRecord
	if r.Template != "" {
		if err := json.Unmarshal([]byte(r.Template), &slots); err != nil {
			return model.Client{}, fmt.Errorf("%w: client %s template: %v", ErrConstraintViolation, r.ID, err)
		}
	}
	template := make([]model.Slot, 0, len(slots))
	for _, slot := range slots {
		at, err := calendar.ParseTimeOfDay(slot.Time)
		if err != nil {
			return model.Client{}, fmt.Errorf("%w: client %s: %v", ErrConstraintViolation, r.ID, err)
		}
		template = append(template, model.Slot{Weekday: time.Weekday(slot.Weekday), Time: at})
	}

	return model.Client{
		ID:             r.ID,
		Name:           r.Name,
		Phone:          r.Phone,
		Plan:           model.Plan(r.Plan),
		BillingDay:     r.BillingDay,
		Fee:            fee,
		Template:       template,
		Active:         r.Active,
		ConsultingOnly: r.ConsultingOnly,
	}, nil
}

// NewOccurrenceRecord encodes an occurrence for storage.
func NewOccurrenceRecord(o model.Occurrence, updatedAt time.Time) (OccurrenceRecord, error) {
	tags := model.NormalizeTags(o.Tags)
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return OccurrenceRecord{}, fmt.Errorf("%w: encode tags: %v", ErrConstraintViolation, err)
	}
	return OccurrenceRecord{
		ID:              o.ID,
		ClientID:        o.ClientID,
		ClientName:      o.ClientName,
		Date:            o.Date.String(),
		Time:            o.Time.String(),
		DurationMinutes: o.Duration(),
		Completed:       o.Completed,
		Tags:            string(encoded),
		Notes:           o.Notes,
		SourceKey:       o.SourceKey,
		AdHoc:           o.AdHoc,
		UpdatedAt:       updatedAt.UTC(),
	}, nil
}

// Occurrence decodes the record.
func (r OccurrenceRecord) Occurrence() (model.Occurrence, error) {
	date, err := calendar.ParseDate(r.Date)
	if err != nil {
		return model.Occurrence{}, fmt.Errorf("%w: occurrence %s: %v", ErrConstraintViolation, r.ID, err)
	}
	at, err := calendar.ParseTimeOfDay(r.Time)
	if err != nil {
		return model.Occurrence{}, fmt.Errorf("%w: occurrence %s: %v", ErrConstraintViolation, r.ID, err)
	}
	var tags []string
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &tags); err != nil {
			return model.Occurrence{}, fmt.Errorf("%w: occurrence %s tags: %v", ErrConstraintViolation, r.ID, err)
		}
	}
	return model.Occurrence{
		ID:              r.ID,
		ClientID:        r.ClientID,
		ClientName:      r.ClientName,
		Date:            date,
		Time:            at,
		DurationMinutes: r.DurationMinutes,
		Completed:       r.Completed,
		Tags:            model.NormalizeTags(tags),
		Notes:           r.Notes,
		SourceKey:       r.SourceKey,
		AdHoc:           r.AdHoc,
	}, nil
}
