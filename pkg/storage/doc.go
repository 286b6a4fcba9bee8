// Package storage provides what the storage adapters share: the sentinel
// errors every adapter maps its failures onto.
//
// Adapters (memory, postgres) implement the identity.UserStore and
// product.Store interfaces, which are declared by the services that consume
// them. This package contains only shared types, not the interfaces.
package storage
