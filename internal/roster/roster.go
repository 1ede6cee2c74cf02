// Package roster reads and writes the YAML roster file the trainer keeps
// their clients and weekly templates in.
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/recurrence"
)

// ErrInvalidRoster wraps every decoding problem found in a roster file.
var ErrInvalidRoster = errors.New("roster: invalid roster")

// Roster is the on-disk shape of the client list.
type Roster struct {
	Clients []Entry `yaml:"clients"`
}

// Entry is one client as written in the roster file.
type Entry struct {
	ID             string      `yaml:"id,omitempty"`
	Name           string      `yaml:"name"`
	Phone          string      `yaml:"phone,omitempty"`
	Plan           string      `yaml:"plan"`
	BillingDay     int         `yaml:"billing_day,omitempty"`
	Fee            string      `yaml:"fee"`
	Active         *bool       `yaml:"active,omitempty"`
	ConsultingOnly bool        `yaml:"consulting_only,omitempty"`
	Template       []SlotEntry `yaml:"template,omitempty"`
}

// SlotEntry is one weekly template slot. Time may be omitted.
type SlotEntry struct {
	Weekday string `yaml:"weekday"`
	Time    string `yaml:"time,omitempty"`
}

// Load reads and decodes the roster at path.
func Load(path string) (Roster, error) {
	if path == "" {
		return Roster{}, errors.New("roster: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("roster: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a roster document. Unknown fields are rejected.
func Parse(data []byte) (Roster, error) {
	var r Roster
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		if errors.Is(err, io.EOF) {
			return Roster{}, nil
		}
		return Roster{}, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}
	return r, nil
}

// Save writes r to path atomically with 0600 permissions, creating the parent
// directory when needed.
func Save(path string, r Roster) error {
	if path == "" {
		return errors.New("roster: path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("roster: create dir: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("roster: encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".roster-*.tmp")
	if err != nil {
		return fmt.Errorf("roster: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("roster: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("roster: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("roster: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("roster: rename: %w", err)
	}
	return nil
}

// ToClients converts every entry into a model.Client. Entries without an id get
// one from newID. All decoding problems are reported together.
func (r Roster) ToClients(newID func() string) ([]model.Client, error) {
	clients := make([]model.Client, 0, len(r.Clients))
	var problems []error
	for i, entry := range r.Clients {
		client, err := entry.Client()
		if err != nil {
			problems = append(problems, fmt.Errorf("clients[%d] (%s): %w", i, entry.Name, err))
			continue
		}
		if client.ID == "" && newID != nil {
			client.ID = newID()
		}
		clients = append(clients, client)
	}
	if err := errors.Join(problems...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
	}
	return clients, nil
}

// Client converts the entry. Missing slot times fall back to 08:00 and a
// missing active flag means active.
func (e Entry) Client() (model.Client, error) {
	client := model.Client{
		ID:             strings.TrimSpace(e.ID),
		Name:           strings.TrimSpace(e.Name),
		Phone:          strings.TrimSpace(e.Phone),
		Plan:           model.Plan(strings.ToLower(strings.TrimSpace(e.Plan))),
		BillingDay:     e.BillingDay,
		Active:         e.Active == nil || *e.Active,
		ConsultingOnly: e.ConsultingOnly,
	}

	if strings.TrimSpace(e.Fee) == "" {
		client.Fee = decimal.Zero
	} else {
		fee, err := decimal.NewFromString(strings.TrimSpace(e.Fee))
		if err != nil {
			return model.Client{}, fmt.Errorf("fee %q: %w", e.Fee, err)
		}
		client.Fee = fee
	}

	for _, slot := range e.Template {
		day, err := ParseWeekday(slot.Weekday)
		if err != nil {
			return model.Client{}, err
		}
		at := recurrence.DefaultSlotTime
		if strings.TrimSpace(slot.Time) != "" {
			at, err = calendar.ParseTimeOfDay(strings.TrimSpace(slot.Time))
			if err != nil {
				return model.Client{}, fmt.Errorf("slot time %q: %w", slot.Time, err)
			}
		}
		client.Template = append(client.Template, model.Slot{Weekday: day, Time: at})
	}
	return client, nil
}

// FromClients builds a roster document from the given clients.
func FromClients(clients []model.Client) Roster {
	r := Roster{Clients: make([]Entry, 0, len(clients))}
	for _, c := range clients {
		active := c.Active
		entry := Entry{
			ID:             c.ID,
			Name:           c.Name,
			Phone:          c.Phone,
			Plan:           string(c.Plan),
			BillingDay:     c.BillingDay,
			Fee:            c.Fee.StringFixed(2),
			Active:         &active,
			ConsultingOnly: c.ConsultingOnly,
		}
		for _, slot := range c.Template {
			entry.Template = append(entry.Template, SlotEntry{
				Weekday: strings.ToLower(slot.Weekday.String()),
				Time:    slot.Time.String(),
			})
		}
		r.Clients = append(r.Clients, entry)
	}
	return r
}

// ParseWeekday accepts English weekday names and their three letter
// abbreviations, in any case.
func ParseWeekday(value string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if v == name || v == name[:3] {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", value)
}
