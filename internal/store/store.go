// Package store holds the gorm backed Inventory Store, Customer Store and Sale Ledger.
//
// Every store is bound to the *gorm.DB it was built with. Building a store from a
// transaction handle makes all of its reads and writes part of that transaction.
package store

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Stores groups the three stores bound to one handle.
type Stores struct {
	Bikes     *GormBikeStore
	Customers *GormCustomerStore
	Sales     *GormSaleStore
}

// New binds all stores to db, which may be a transaction.
func New(db *gorm.DB) *Stores {
	return &Stores{
		Bikes:     NewGormBikeStore(db),
		Customers: NewGormCustomerStore(db),
		Sales:     NewGormSaleStore(db),
	}
}

// forUpdate adds a row lock on dialects that support SELECT ... FOR UPDATE.
// SQLite serializes writers at the database level instead.
func forUpdate(db *gorm.DB) *gorm.DB {
	if strings.EqualFold(db.Dialector.Name(), "sqlite") {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Page normalizes a 1-based page and a page size.
type Page struct {
	Page  int
	Limit int
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}

func (p Page) enabled() bool {
	return p.Page > 0 && p.Limit > 0
}
