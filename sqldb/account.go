package sqldb

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/wansing/mvv/core"
)

const accountColumns = "id, client_id, name, amount, currency, created, updated"

func scanAccount(row scanner) (*core.Account, error) {
	var a = &core.Account{}
	var created, updated int64
	if err := row.Scan(&a.ID, &a.ClientID, &a.Name, &a.Amount, &a.Currency, &created, &updated); err != nil {
		return nil, notFound(err)
	}
	a.CreatedAt = time.Unix(created, 0).UTC()
	a.UpdatedAt = time.Unix(updated, 0).UTC()
	return a, nil
}

// AccountDB stores amounts as integers. Statements which change an amount contain a guard,
// so a concurrent withdrawal can't make an amount negative and a deposit can't overflow.
type AccountDB struct {
	*sql.DB
	add      *sql.Stmt
	delete   *sql.Stmt
	get      *sql.Stmt
	getOf    *sql.Stmt
	insert   *sql.Stmt
	rename   *sql.Stmt
	withdraw *sql.Stmt
}

func NewAccountDB(db *sql.DB) *AccountDB {
	var accountDB = &AccountDB{}
	accountDB.DB = db
	accountDB.add = mustPrepare(db, "UPDATE account SET amount = amount + ?, updated = ? WHERE id = ? AND amount <= ?")
	accountDB.delete = mustPrepare(db, "DELETE FROM account WHERE id = ?")
	accountDB.get = mustPrepare(db, "SELECT "+accountColumns+" FROM account WHERE id = ? LIMIT 1")
	accountDB.getOf = mustPrepare(db, "SELECT "+accountColumns+" FROM account WHERE client_id = ? ORDER BY created, id")
	accountDB.insert = mustPrepare(db, "INSERT INTO account ("+accountColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)")
	accountDB.rename = mustPrepare(db, "UPDATE account SET name = ?, updated = ? WHERE id = ?")
	accountDB.withdraw = mustPrepare(db, "UPDATE account SET amount = amount - ?, updated = ? WHERE id = ? AND amount >= ?")
	return accountDB
}

func (db *AccountDB) GetAccount(ctx context.Context, id string) (*core.Account, error) {
	return scanAccount(db.get.QueryRowContext(ctx, id))
}

func (db *AccountDB) GetAccountsOf(ctx context.Context, clientID int64) ([]*core.Account, error) {

	rows, err := db.getOf.QueryContext(ctx, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts = []*core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (db *AccountDB) InsertAccount(ctx context.Context, a *core.Account) error {
	_, err := db.insert.ExecContext(ctx, a.ID, a.ClientID, a.Name, a.Amount, a.Currency, a.CreatedAt.Unix(), a.UpdatedAt.Unix())
	return exists(err, "account "+a.ID)
}

func (db *AccountDB) RenameAccount(ctx context.Context, id, name string) error {
	_, err := db.rename.ExecContext(ctx, name, time.Now().Unix(), id)
	return err
}

func (db *AccountDB) DeleteAccount(ctx context.Context, id string) error {
	return affected(db.delete.ExecContext(ctx, id))
}

// decrease subtracts a positive amount within tx. It distinguishes a missing account from insufficient funds.
func (db *AccountDB) decrease(ctx context.Context, tx *sql.Tx, id string, amount int64, now int64) error {
	err := affected(tx.StmtContext(ctx, db.withdraw).ExecContext(ctx, amount, now, id, amount))
	if err != core.ErrNotFound {
		return err
	}
	if _, err := scanAccount(tx.StmtContext(ctx, db.get).QueryRowContext(ctx, id)); err != nil {
		return err
	}
	return core.ErrInsufficientFunds
}

// increase adds a positive amount within tx. It distinguishes a missing account from an overflow.
func (db *AccountDB) increase(ctx context.Context, tx *sql.Tx, id string, amount int64, now int64) error {
	err := affected(tx.StmtContext(ctx, db.add).ExecContext(ctx, amount, now, id, math.MaxInt64-amount))
	if err != core.ErrNotFound {
		return err
	}
	if _, err := scanAccount(tx.StmtContext(ctx, db.get).QueryRowContext(ctx, id)); err != nil {
		return err
	}
	return core.ErrAmountTooLarge
}

func (db *AccountDB) AddAmount(ctx context.Context, id string, delta int64) (*core.Account, error) {

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var now = time.Now().Unix()
	if delta < 0 {
		err = db.decrease(ctx, tx, id, -delta, now)
	} else {
		err = db.increase(ctx, tx, id, delta, now)
	}
	if err != nil {
		return nil, err
	}

	a, err := scanAccount(tx.StmtContext(ctx, db.get).QueryRowContext(ctx, id))
	if err != nil {
		return nil, err
	}
	return a, tx.Commit()
}

func (db *AccountDB) Transfer(ctx context.Context, fromID, toID string, amount int64) error {

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var now = time.Now().Unix()
	if err := db.decrease(ctx, tx, fromID, amount, now); err != nil {
		return err
	}
	if err := db.increase(ctx, tx, toID, amount, now); err != nil {
		return err
	}
	return tx.Commit()
}
