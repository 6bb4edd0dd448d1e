// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package logdb persists contract events in sqlite for querying.
package logdb

import (
	"context"
	"database/sql"
	"encoding/json"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/xenv"
)

type LogDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	// a memory db lives as long as its only connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &LogDB{path, db, driverVer}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() error {
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

func (db *LogDB) DriverVersion() string {
	return db.driverVersion
}

// Write stores the events emitted by one committed transaction.
func (db *LogDB) Write(blockCtx *xenv.BlockContext, txCtx *xenv.TransactionContext, events []xenv.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for i, ev := range events {
		data, err := json.Marshal(ev.Args)
		if err != nil {
			return errors.Wrapf(err, "encode event %v", ev.Name)
		}
		if _, err := tx.Exec("INSERT OR REPLACE INTO event(blockNumber, eventIndex, blockTime, txID, txOrigin, address, name, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?);",
			blockCtx.Number,
			i,
			blockCtx.Time,
			txCtx.ID.Bytes(),
			txCtx.Origin.Bytes(),
			ev.Address.Bytes(),
			ev.Name,
			data,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	stmt := "SELECT blockNumber, eventIndex, blockTime, txID, txOrigin, address, name, data FROM event WHERE 1"
	if filter == nil {
		return db.queryEvents(ctx, stmt+" ORDER BY blockNumber ASC, eventIndex ASC")
	}
	var args []any
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND blockNumber >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND blockNumber <= ?"
		}
	}
	if filter.Address != nil {
		args = append(args, filter.Address.Bytes())
		stmt += " AND address = ?"
	}
	if filter.Name != "" {
		args = append(args, filter.Name)
		stmt += " AND name = ?"
	}

	if filter.Order == DESC {
		stmt += " ORDER BY blockNumber DESC, eventIndex DESC"
	} else {
		stmt += " ORDER BY blockNumber ASC, eventIndex ASC"
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *LogDB) queryEvents(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			ev       Event
			txID     []byte
			txOrigin []byte
			address  []byte
			data     []byte
		)
		if err := rows.Scan(
			&ev.BlockNumber,
			&ev.Index,
			&ev.BlockTime,
			&txID,
			&txOrigin,
			&address,
			&ev.Name,
			&data,
		); err != nil {
			return nil, err
		}
		ev.TxID = anchor.BytesToBytes32(txID)
		ev.TxOrigin = anchor.BytesToAddress(txOrigin)
		ev.Address = anchor.BytesToAddress(address)
		ev.Args = data
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
