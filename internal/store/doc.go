// Package store defines the persistence contract for products: the
// ProductStore interface, listing filters, pagination and the sentinel errors
// every implementation maps its failures to. Transactions are run through
// RunInTransaction and bound to a store with WithTx.
package store
