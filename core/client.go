package core

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	DefaultClientLimit = 20
	MaxClientLimit     = 100
)

// ClientInfo is a customer of the bank. A client can own accounts and can be linked to a user.
type ClientInfo struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	BirthDate    string `json:"birthDate"` // YYYY-MM-DD, optional
	Active       bool   `json:"active"`
	BusinessUser bool   `json:"businessUser"`
}

func (c *ClientInfo) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ClientFilter selects clients. Empty fields match everything. Email and Phone match exactly, Name matches a substring of the first or last name.
type ClientFilter struct {
	Email  string
	Phone  string
	Name   string
	Active *bool
	Limit  int
	Offset int
}

type ClientDB interface {
	GetClient(ctx context.Context, id int64) (*ClientInfo, error)
	InsertClient(ctx context.Context, c *ClientInfo) error // sets c.ID
	SearchClients(ctx context.Context, filter ClientFilter) ([]*ClientInfo, error)
	SetClientActive(ctx context.Context, id int64, active bool) error
	UpdateClient(ctx context.Context, c *ClientInfo) error
}

// normalize validates the client and brings email and phone into a canonical form.
func (c *ClientInfo) normalize() error {

	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = normalizePhone(c.Phone)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.BirthDate = strings.TrimSpace(c.BirthDate)

	if c.Email == "" && c.Phone == "" {
		return fmt.Errorf("%w: email or phone is required", ErrInvalid)
	}
	if c.Email != "" {
		addr, err := mail.ParseAddress(c.Email)
		if err != nil || addr.Address != c.Email {
			return fmt.Errorf("%w: email address %q", ErrInvalid, c.Email)
		}
	}
	if c.BirthDate != "" {
		birth, err := time.Parse(time.DateOnly, c.BirthDate)
		if err != nil {
			return fmt.Errorf("%w: birth date %q, want YYYY-MM-DD", ErrInvalid, c.BirthDate)
		}
		if birth.After(time.Now()) {
			return fmt.Errorf("%w: birth date is in the future", ErrInvalid)
		}
	}
	return nil
}

// normalizePhone removes spaces, dashes, slashes and parentheses.
func normalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '/', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

func (f *ClientFilter) normalize() {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Phone = normalizePhone(f.Phone)
	f.Name = strings.TrimSpace(f.Name)
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultClientLimit
	case f.Limit > MaxClientLimit:
		f.Limit = MaxClientLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// SearchClients shadows ClientDB.SearchClients. It requires RoleRead.
func (c *CoreDB) SearchClients(ctx context.Context, v *Viewer, filter ClientFilter) ([]*ClientInfo, error) {
	if !v.Can(RoleRead) {
		return nil, ErrForbidden
	}
	filter.normalize()
	return c.ClientDB.SearchClients(ctx, filter)
}

// Client returns a client which the viewer may read. Other clients are reported as ErrNotFound.
func (c *CoreDB) Client(ctx context.Context, v *Viewer, id int64) (*ClientInfo, error) {
	if !v.CanReadClient(id) {
		return nil, ErrNotFound
	}
	return c.ClientDB.GetClient(ctx, id)
}

// InsertClient shadows ClientDB.InsertClient. It requires RoleWrite. New clients are active.
func (c *CoreDB) InsertClient(ctx context.Context, v *Viewer, client *ClientInfo) error {
	if !v.Can(RoleWrite) {
		return ErrForbidden
	}
	if err := client.normalize(); err != nil {
		return err
	}
	client.Active = true
	return c.ClientDB.InsertClient(ctx, client)
}

// UpdateClient shadows ClientDB.UpdateClient. Clients may update their own data, except the active and business flags.
func (c *CoreDB) UpdateClient(ctx context.Context, v *Viewer, client *ClientInfo) error {
	old, err := c.Client(ctx, v, client.ID)
	if err != nil {
		return err
	}
	if !v.CanWriteClient(client.ID) {
		return ErrForbidden
	}
	if err := client.normalize(); err != nil {
		return err
	}
	if !v.Can(RoleWrite) {
		client.Active = old.Active
		client.BusinessUser = old.BusinessUser
	}
	return c.ClientDB.UpdateClient(ctx, client)
}

// SetClientActive shadows ClientDB.SetClientActive. It requires RoleWrite.
func (c *CoreDB) SetClientActive(ctx context.Context, v *Viewer, id int64, active bool) error {
	if !v.Can(RoleWrite) {
		return ErrForbidden
	}
	if _, err := c.ClientDB.GetClient(ctx, id); err != nil {
		return err
	}
	return c.ClientDB.SetClientActive(ctx, id, active)
}
