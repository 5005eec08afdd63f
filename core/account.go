package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is a bank account of a client. Amount is in minor units of the currency.
type Account struct {
	ID        string    `json:"id"`
	ClientID  int64     `json:"clientId"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AccountDB interface {
	// AddAmount adds delta to the amount of the account and returns the updated account.
	// It returns ErrInsufficientFunds if the amount would become negative.
	AddAmount(ctx context.Context, id string, delta int64) (*Account, error)
	DeleteAccount(ctx context.Context, id string) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountsOf(ctx context.Context, clientID int64) ([]*Account, error)
	InsertAccount(ctx context.Context, a *Account) error
	RenameAccount(ctx context.Context, id string, name string) error
	// Transfer moves amount from one account to another atomically.
	// It returns ErrInsufficientFunds if the source amount would become negative.
	Transfer(ctx context.Context, fromID, toID string, amount int64) error
}

const maxAccountName = 64

func normalizeAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty account name", ErrInvalid)
	}
	if len([]rune(name)) > maxAccountName {
		return "", fmt.Errorf("%w: account name is longer than %d characters", ErrInvalid, maxAccountName)
	}
	return name, nil
}

func requirePositive(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	return nil
}

// Accounts returns the accounts of a client. If clientID is zero, the viewer's own accounts are returned.
func (c *CoreDB) Accounts(ctx context.Context, v *Viewer, clientID int64) ([]*Account, error) {
	if clientID == 0 {
		clientID = v.ClientID
	}
	if clientID == 0 {
		return nil, fmt.Errorf("%w: no client given", ErrInvalid)
	}
	if !v.CanReadClient(clientID) {
		return nil, ErrForbidden
	}
	return c.AccountDB.GetAccountsOf(ctx, clientID)
}

// Account returns an account. Accounts which the viewer may not read are reported as ErrNotFound.
func (c *CoreDB) Account(ctx context.Context, v *Viewer, id string) (*Account, error) {
	a, err := c.AccountDB.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.CanReadClient(a.ClientID) {
		return nil, ErrNotFound
	}
	return a, nil
}

// writableAccount returns an account which the viewer may modify.
func (c *CoreDB) writableAccount(ctx context.Context, v *Viewer, id string) (*Account, error) {
	a, err := c.Account(ctx, v, id)
	if err != nil {
		return nil, err
	}
	if !v.CanWriteClient(a.ClientID) {
		return nil, ErrForbidden
	}
	return a, nil
}

// OpenAccount creates an empty account for an active client.
func (c *CoreDB) OpenAccount(ctx context.Context, v *Viewer, clientID int64, name, currencyCode string) (*Account, error) {

	if !v.CanWriteClient(clientID) {
		return nil, ErrForbidden
	}

	name, err := normalizeAccountName(name)
	if err != nil {
		return nil, err
	}

	code, err := ParseCurrency(currencyCode)
	if err != nil {
		return nil, err
	}

	client, err := c.ClientDB.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !client.Active {
		return nil, fmt.Errorf("%w: client %d is not active", ErrInvalid, clientID)
	}

	var now = time.Now().UTC().Truncate(time.Second)
	var a = &Account{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Name:      name,
		Currency:  code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.AccountDB.InsertAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RenameAccount shadows AccountDB.RenameAccount.
func (c *CoreDB) RenameAccount(ctx context.Context, v *Viewer, id, name string) error {
	name, err := normalizeAccountName(name)
	if err != nil {
		return err
	}
	if _, err := c.writableAccount(ctx, v, id); err != nil {
		return err
	}
	return c.AccountDB.RenameAccount(ctx, id, name)
}

// Deposit adds money to an account. Only viewers with RoleWrite may deposit.
func (c *CoreDB) Deposit(ctx context.Context, v *Viewer, id string, amount int64) (*Account, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	if _, err := c.Account(ctx, v, id); err != nil {
		return nil, err
	}
	if !v.Can(RoleWrite) {
		return nil, ErrForbidden
	}
	return c.AccountDB.AddAmount(ctx, id, amount)
}

// Withdraw takes money from an account.
func (c *CoreDB) Withdraw(ctx context.Context, v *Viewer, id string, amount int64) (*Account, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	if _, err := c.writableAccount(ctx, v, id); err != nil {
		return nil, err
	}
	return c.AccountDB.AddAmount(ctx, id, -amount)
}

// Transfer shadows AccountDB.Transfer. The viewer must be allowed to modify the source account.
// The target account can belong to any client, but must have the same currency.
func (c *CoreDB) Transfer(ctx context.Context, v *Viewer, fromID, toID string, amount int64) error {

	if err := requirePositive(amount); err != nil {
		return err
	}
	if fromID == toID {
		return fmt.Errorf("%w: source and target account are equal", ErrInvalid)
	}

	from, err := c.writableAccount(ctx, v, fromID)
	if err != nil {
		return err
	}

	to, err := c.AccountDB.GetAccount(ctx, toID)
	if err != nil {
		return fmt.Errorf("target account: %w", err)
	}
	if from.Currency != to.Currency {
		return fmt.Errorf("%w: currencies differ (%s, %s)", ErrInvalid, from.Currency, to.Currency)
	}

	return c.AccountDB.Transfer(ctx, fromID, toID, amount)
}

// CloseAccount deletes an account. The amount must be zero.
func (c *CoreDB) CloseAccount(ctx context.Context, v *Viewer, id string) error {
	a, err := c.writableAccount(ctx, v, id)
	if err != nil {
		return err
	}
	if a.Amount != 0 {
		return fmt.Errorf("%w: account amount is not zero", ErrInvalid)
	}
	return c.AccountDB.DeleteAccount(ctx, id)
}
