// Package userstore provides the account providers behind
// tokenauth.UserProvider: an in-process map for tests and single-node
// development, and a PostgreSQL table reached through pgxpool.
//
// Lookups are by normalized email. Both providers report an unknown account
// as tokenauth.ErrUserNotFound and a duplicate insert as
// tokenauth.ErrAccountExists; every other error is an outage.
package userstore
